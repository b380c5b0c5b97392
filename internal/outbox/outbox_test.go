package outbox

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/store"
)

var start = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newProcessor(t *testing.T) (*Processor, *sql.DB, *clock) {
	t.Helper()
	database := db.NewTestDB(t)
	c := &clock{t: start}
	p := NewProcessor(database, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Now = c.now
	p.MaxAttempts = 3
	return p, database, c
}

func enqueue(t *testing.T, q store.Querier, kind string, payload any) string {
	t.Helper()
	id, err := Enqueue(context.Background(), q, kind, payload, start)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return id
}

func TestDeliverAppliesOnce(t *testing.T) {
	p, database, _ := newProcessor(t)
	ctx := context.Background()

	calls := 0
	p.Register("test", func(ctx context.Context, tx *sql.Tx, ev store.OutboxEvent) error {
		calls++
		if string(ev.Payload) != `{"n":1}` {
			t.Errorf("unexpected payload %s", ev.Payload)
		}
		return nil
	})

	id := enqueue(t, database, "test", map[string]int{"n": 1})

	n, err := p.Deliver(ctx)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if n != 1 || calls != 1 {
		t.Fatalf("expected one delivery, got n=%d calls=%d", n, calls)
	}

	// Already processed: neither Deliver nor Flush applies it again.
	p.Deliver(ctx)
	p.Flush(ctx, []string{id})
	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}

	ev, _ := store.GetOutboxEvent(ctx, database, id)
	if ev.ProcessedAt == nil {
		t.Error("expected event to be marked processed")
	}
}

func TestFailedDeliveryRollsBackAndRetries(t *testing.T) {
	p, database, c := newProcessor(t)
	ctx := context.Background()

	fail := true
	p.Register("test", func(ctx context.Context, tx *sql.Tx, ev store.OutboxEvent) error {
		// The write must vanish with the failed attempt.
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('touched', ?)`, ev.ID); err != nil {
			return err
		}
		if fail {
			return errors.New("handler down")
		}
		return nil
	})

	id := enqueue(t, database, "test", struct{}{})
	p.Flush(ctx, []string{id})

	ev, _ := store.GetOutboxEvent(ctx, database, id)
	if ev.ProcessedAt != nil || ev.Attempts != 1 || ev.LastError != "handler down" {
		t.Fatalf("unexpected event after failure: %+v", ev)
	}
	if v, _ := store.GetSetting(ctx, database, "touched"); v != "" {
		t.Error("expected failed attempt to be rolled back")
	}

	// Not due until the backoff elapses.
	if n, _ := p.Deliver(ctx); n != 0 {
		t.Errorf("expected nothing due, delivered %d", n)
	}

	fail = false
	c.t = c.t.Add(Backoff(1))
	if n, _ := p.Deliver(ctx); n != 1 {
		t.Fatalf("expected retry to deliver, got %d", n)
	}
	if v, _ := store.GetSetting(ctx, database, "touched"); v != id {
		t.Errorf("expected handler write to persist, got %q", v)
	}
}

func TestEventGoesDeadAfterMaxAttempts(t *testing.T) {
	p, database, c := newProcessor(t)
	ctx := context.Background()

	p.Register("test", func(ctx context.Context, tx *sql.Tx, ev store.OutboxEvent) error {
		return errors.New("always")
	})
	id := enqueue(t, database, "test", struct{}{})

	for i := 0; i < p.MaxAttempts; i++ {
		p.Deliver(ctx)
		c.t = c.t.Add(time.Hour)
	}

	ev, _ := store.GetOutboxEvent(ctx, database, id)
	if !ev.Dead || ev.Attempts != p.MaxAttempts {
		t.Errorf("expected dead after %d attempts, got %+v", p.MaxAttempts, ev)
	}
}

func TestUnknownKindIsParked(t *testing.T) {
	p, database, _ := newProcessor(t)
	ctx := context.Background()

	id := enqueue(t, database, "mystery", struct{}{})
	p.Deliver(ctx)

	ev, _ := store.GetOutboxEvent(ctx, database, id)
	if !ev.Dead {
		t.Errorf("expected unknown kind to be parked, got %+v", ev)
	}
}

func TestBackoff(t *testing.T) {
	if Backoff(1) != time.Second || Backoff(3) != 4*time.Second {
		t.Errorf("unexpected backoff %v %v", Backoff(1), Backoff(3))
	}
	if Backoff(40) != maxBackoff {
		t.Errorf("expected cap, got %v", Backoff(40))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, database, _ := newProcessor(t)
	p.Interval = 5 * time.Millisecond
	p.Now = func() time.Time { return time.Now().UTC() }

	done := make(chan struct{}, 1)
	p.Register("test", func(ctx context.Context, tx *sql.Tx, ev store.OutboxEvent) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if _, err := Enqueue(context.Background(), database, "test", struct{}{}, time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected background loop to deliver the event")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return after cancel")
	}
}
