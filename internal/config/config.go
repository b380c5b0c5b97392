// Package config loads runtime settings. Values come from built-in defaults,
// then a .env file in the working directory, then NAJDENO_* environment
// variables. Command-line flags applied by the caller win over all three.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	DBPath         string
	Addr           string
	LogPath        string
	AdminUser      string
	SiblingPolicy  string
	RedisAddr      string
	OutboxInterval time.Duration
	TokenTTL       time.Duration
	ImageMaxDim    int
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:         "najdeno.sqlite3",
		Addr:           ":8080",
		AdminUser:      "Admin",
		SiblingPolicy:  "keep",
		OutboxInterval: 5 * time.Second,
		TokenTTL:       7 * 24 * time.Hour,
		ImageMaxDim:    1600,
	}
}

// Load reads envFile (when it exists) into the environment and returns the
// defaults overridden by NAJDENO_* variables. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// Missing files are normal in production.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv applies the NAJDENO_* variables found by lookup to the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("NAJDENO_DB", &cfg.DBPath)
	str("NAJDENO_ADDR", &cfg.Addr)
	str("NAJDENO_LOG", &cfg.LogPath)
	str("NAJDENO_ADMIN_USER", &cfg.AdminUser)
	str("NAJDENO_SIBLING_POLICY", &cfg.SiblingPolicy)
	str("NAJDENO_REDIS_ADDR", &cfg.RedisAddr)

	for key, dst := range map[string]*time.Duration{
		"NAJDENO_OUTBOX_INTERVAL": &cfg.OutboxInterval,
		"NAJDENO_TOKEN_TTL":       &cfg.TokenTTL,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", key, v)
		}
		*dst = d
	}

	if v, ok := lookup("NAJDENO_IMAGE_MAX_DIM"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("NAJDENO_IMAGE_MAX_DIM: invalid size %q", v)
		}
		cfg.ImageMaxDim = n
	}

	return cfg, nil
}
