package db

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	dsn := DSN("najdeno.db")
	if !strings.HasPrefix(dsn, "najdeno.db?") {
		t.Fatalf("unexpected DSN prefix: %q", dsn)
	}
	for _, want := range []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected DSN to contain %q, got %q", want, dsn)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'claim_requests'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected claim_requests table, got count %d", n)
	}
}
