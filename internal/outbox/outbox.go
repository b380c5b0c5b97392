// Package outbox queues side effects in the transaction that caused them and
// applies them after commit. Each event is applied in its own transaction
// together with the write that marks it processed, so against the same
// database its effect happens exactly once.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/store"
)

// Event kinds.
const (
	KindNotification = "notification"
	KindAudit        = "audit"
)

// Handler applies one event inside tx.
type Handler func(ctx context.Context, tx *sql.Tx, ev store.OutboxEvent) error

// Enqueue stores payload as a new due event and returns its ID. Call it with
// the transaction of the change that produced the event.
func Enqueue(ctx context.Context, q store.Querier, kind string, payload any, now time.Time) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s event: %w", kind, err)
	}
	id := uuid.NewString()
	if err := store.InsertOutboxEvent(ctx, q, id, kind, data, now); err != nil {
		return "", err
	}
	return id, nil
}

// Defaults for a zero Processor.
const (
	DefaultBatchSize   = 50
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 8
	maxBackoff         = 5 * time.Minute
)

// errSkip rolls back a delivery whose event was already processed.
var errSkip = errors.New("event already processed")

// Processor delivers due events to their handlers.
type Processor struct {
	DB          *sql.DB
	Logger      *slog.Logger
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	Now         func() time.Time

	handlers map[string]Handler
}

// NewProcessor returns a Processor with default limits.
func NewProcessor(database *sql.DB, logger *slog.Logger) *Processor {
	return &Processor{
		DB:          database,
		Logger:      logger,
		BatchSize:   DefaultBatchSize,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register sets the handler for kind.
func (p *Processor) Register(kind string, h Handler) {
	if p.handlers == nil {
		p.handlers = make(map[string]Handler)
	}
	p.handlers[kind] = h
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}

// Backoff returns the delay before the next attempt after attempts failures.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := time.Second << (attempts - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Deliver applies every due event, up to one batch, and returns how many
// were applied.
func (p *Processor) Deliver(ctx context.Context) (int, error) {
	limit := p.BatchSize
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	events, err := store.ListDueOutboxEvents(ctx, p.DB, p.now(), limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, ev := range events {
		if p.process(ctx, ev) {
			delivered++
		}
	}
	return delivered, nil
}

// Flush applies the given events right away. Failures are logged and left
// for the background loop to retry.
func (p *Processor) Flush(ctx context.Context, ids []string) {
	if p == nil {
		return
	}
	for _, id := range ids {
		ev, err := store.GetOutboxEvent(ctx, p.DB, id)
		if err != nil {
			p.logger().Error("loading outbox event", "id", id, "error", err)
			continue
		}
		if ev == nil || ev.ProcessedAt != nil || ev.Dead {
			continue
		}
		p.process(ctx, *ev)
	}
}

// process applies one event and reports whether it was applied.
func (p *Processor) process(ctx context.Context, ev store.OutboxEvent) bool {
	h, ok := p.handlers[ev.Kind]
	if !ok {
		p.fail(ctx, ev, fmt.Errorf("no handler for event kind %q", ev.Kind), true)
		return false
	}

	err := store.WithTx(ctx, p.DB, func(tx *sql.Tx) error {
		current, err := store.GetOutboxEvent(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		if current == nil || current.ProcessedAt != nil || current.Dead {
			return errSkip
		}

		if err := h(ctx, tx, ev); err != nil {
			return err
		}

		marked, err := store.MarkOutboxProcessed(ctx, tx, ev.ID, p.now())
		if err != nil {
			return err
		}
		if !marked {
			return errSkip
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		return false
	}
	if err != nil {
		p.fail(ctx, ev, err, false)
		return false
	}
	return true
}

func (p *Processor) fail(ctx context.Context, ev store.OutboxEvent, cause error, dead bool) {
	attempts := ev.Attempts + 1
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if attempts >= maxAttempts {
		dead = true
	}

	next := p.now().Add(Backoff(attempts))
	if err := store.MarkOutboxFailed(ctx, p.DB, ev.ID, attempts, cause.Error(), next, dead); err != nil {
		p.logger().Error("recording outbox failure", "id", ev.ID, "kind", ev.Kind, "error", err)
		return
	}

	if dead {
		p.logger().Error("outbox event abandoned", "id", ev.ID, "kind", ev.Kind, "attempts", attempts, "error", cause)
		return
	}
	p.logger().Warn("outbox event failed", "id", ev.ID, "kind", ev.Kind, "attempts", attempts, "retry_at", next, "error", cause)
}

// Run delivers due events every Interval until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Deliver(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger().Error("delivering outbox events", "error", err)
				continue
			}
			if n > 0 {
				p.logger().Info("delivered outbox events", "count", n)
			}
		}
	}
}
