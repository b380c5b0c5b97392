package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"NAJDENO_DB":              "/tmp/x.db",
		"NAJDENO_ADDR":            ":9000",
		"NAJDENO_SIBLING_POLICY":  "reject",
		"NAJDENO_REDIS_ADDR":      "localhost:6379",
		"NAJDENO_OUTBOX_INTERVAL": "250ms",
		"NAJDENO_TOKEN_TTL":       "1h",
		"NAJDENO_IMAGE_MAX_DIM":   "800",
		"NAJDENO_LOG":             "",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" || cfg.Addr != ":9000" || cfg.SiblingPolicy != "reject" || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected strings %+v", cfg)
	}
	if cfg.OutboxInterval != 250*time.Millisecond || cfg.TokenTTL != time.Hour || cfg.ImageMaxDim != 800 {
		t.Errorf("unexpected values %+v", cfg)
	}
	if cfg.LogPath != "" {
		t.Errorf("expected empty value to keep default, got %q", cfg.LogPath)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	for key, value := range map[string]string{
		"NAJDENO_OUTBOX_INTERVAL": "soon",
		"NAJDENO_TOKEN_TTL":       "-1h",
		"NAJDENO_IMAGE_MAX_DIM":   "big",
	} {
		if _, err := FromEnv(env(map[string]string{key: value})); err == nil {
			t.Errorf("%s=%q: expected error", key, value)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("NAJDENO_ADMIN_USER=Root\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NAJDENO_ADMIN_USER", "")
	os.Unsetenv("NAJDENO_ADMIN_USER")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminUser != "Root" {
		t.Errorf("expected admin from env file, got %q", cfg.AdminUser)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("expected missing env file to be ignored, got %v", err)
	}
}
