package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erazemk/najdeno/internal/logging"
	"github.com/erazemk/najdeno/internal/store"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and deliver queued notifications and audit entries",
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Deliver every due outbox event and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, closeLog, err := logging.Setup(cfg.LogPath)
		if err != nil {
			return err
		}
		defer closeLog()

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := context.Background()
		delivered, err := drain(ctx, newProcessor(database, logger, 0))
		if err != nil {
			return err
		}

		stats, err := store.CountOutbox(ctx, database)
		if err != nil {
			return err
		}
		fmt.Printf("Delivered %d events (pending %d, processed %d, dead %d)\n",
			delivered, stats.Pending, stats.Processed, stats.Dead)
		return nil
	},
}

func init() {
	outboxCmd.AddCommand(drainCmd)
}

type deliverer interface {
	Deliver(ctx context.Context) (int, error)
}

// drain delivers batches until one comes back empty.
func drain(ctx context.Context, d deliverer) (int, error) {
	total := 0
	for {
		n, err := d.Deliver(ctx)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
}
