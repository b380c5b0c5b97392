package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/najdeno/internal/api"
	"github.com/erazemk/najdeno/internal/audit"
	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/claims"
	"github.com/erazemk/najdeno/internal/config"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/lock"
	"github.com/erazemk/najdeno/internal/logging"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/outbox"
	"github.com/erazemk/najdeno/internal/store"
)

var serveFlags struct {
	addr          string
	user          string
	siblingPolicy string
	redisAddr     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the outbox worker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("addr") {
			cfg.Addr = serveFlags.addr
		}
		if flags.Changed("user") {
			cfg.AdminUser = serveFlags.user
		}
		if flags.Changed("sibling-policy") {
			cfg.SiblingPolicy = serveFlags.siblingPolicy
		}
		if flags.Changed("redis") {
			cfg.RedisAddr = serveFlags.redisAddr
		}
		return serve(cfg)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlags.addr, "addr", "a", "", "listen address (default: :8080)")
	f.StringVarP(&serveFlags.user, "user", "u", "", "admin username on first run (default: Admin)")
	f.StringVar(&serveFlags.siblingPolicy, "sibling-policy", "", "keep or reject sibling claims on approval (default: keep)")
	f.StringVar(&serveFlags.redisAddr, "redis", "", "Redis address for distributed item locks (default: in-process locks)")
}

// openDatabase opens path, creating it with an admin account on first run.
func openDatabase(cfg config.Config) (*sql.DB, error) {
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	return database, nil
}

// newProcessor returns an outbox processor that delivers notifications and
// audit entries.
func newProcessor(database *sql.DB, logger *slog.Logger, interval time.Duration) *outbox.Processor {
	p := outbox.NewProcessor(database, logger)
	if interval > 0 {
		p.Interval = interval
	}
	p.Register(outbox.KindNotification, notify.NewDispatcher().Handle)
	p.Register(outbox.KindAudit, audit.NewRecorder().Handle)
	return p
}

func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	rdb, err := lock.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis item locks", "addr", cfg.RedisAddr)
	return lock.NewRedis(rdb, 0, logger), func() { rdb.Close() }, nil
}

func serve(cfg config.Config) error {
	logger, closeLog, err := logging.Setup(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	policy, err := claims.ParseSiblingPolicy(cfg.SiblingPolicy)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	processor := newProcessor(database, logger, cfg.OutboxInterval)
	svc := claims.New(database, locker, processor, logger)
	svc.Policy = policy
	svc.MaxImageDimension = cfg.ImageMaxDim

	router := api.NewRouter(api.Deps{
		DB:     database,
		Claims: svc,
		Tokens: auth.NewIssuer(jwtSecret, cfg.TokenTTL),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	worker := make(chan struct{})
	go func() {
		defer close(worker)
		processor.Run(ctx)
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("server started", "addr", cfg.Addr, "sibling_policy", policy)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-worker
		return fmt.Errorf("server error: %w", err)
	}

	<-worker
	logger.Info("server stopped, closing database")
	return nil
}
