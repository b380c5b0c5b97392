// Package claims is the claim registry: it files, reviews and withdraws
// ownership claims and keeps item status, notifications and the audit log
// consistent with them.
package claims

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/directory"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/lock"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/outbox"
	"github.com/erazemk/najdeno/internal/store"
)

// SiblingPolicy decides what happens to the other pending claims on an item
// when one claim is approved.
type SiblingPolicy string

// Sibling policies.
const (
	// SiblingsKeep leaves sibling claims pending. They can still be
	// rejected or withdrawn but never approved.
	SiblingsKeep SiblingPolicy = "keep"
	// SiblingsReject rejects sibling claims in the approving transaction.
	SiblingsReject SiblingPolicy = "reject"
)

// ParseSiblingPolicy parses a configured policy. Empty means keep.
func ParseSiblingPolicy(s string) (SiblingPolicy, error) {
	switch SiblingPolicy(s) {
	case "", SiblingsKeep:
		return SiblingsKeep, nil
	case SiblingsReject:
		return SiblingsReject, nil
	}
	return "", fmt.Errorf("unknown sibling policy %q (want keep or reject)", s)
}

// SiblingRejectNote is stored on claims rejected because a sibling was approved.
const SiblingRejectNote = "another claim for this item was approved"

// Service runs claim and item operations. Every mutation holds the item lock,
// runs in one immediate transaction and queues its notifications and audit
// entries in that transaction; they are delivered after commit.
type Service struct {
	DB          *sql.DB
	Directory   *directory.Directory
	Coordinator *lifecycle.Coordinator
	Locker      lock.Locker
	Outbox      *outbox.Processor
	Policy      SiblingPolicy
	Logger      *slog.Logger
	Now         func() time.Time

	// MaxImageDimension bounds stored evidence images.
	MaxImageDimension int
}

// New wires a Service with the default directory and coordinator.
func New(database *sql.DB, locker lock.Locker, processor *outbox.Processor, logger *slog.Logger) *Service {
	dir := directory.New()
	return &Service{
		DB:          database,
		Directory:   dir,
		Coordinator: lifecycle.New(dir),
		Locker:      locker,
		Outbox:      processor,
		Policy:      SiblingsKeep,
		Logger:      logger,
		Now:         dir.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// effects collects the outbox events queued by one mutation.
type effects struct {
	tx  *sql.Tx
	now time.Time
	ids []string
}

func (fx *effects) notify(ctx context.Context, ev notify.Event) error {
	id, err := outbox.Enqueue(ctx, fx.tx, outbox.KindNotification, ev, fx.now)
	if err != nil {
		return err
	}
	fx.ids = append(fx.ids, id)
	return nil
}

func (fx *effects) audit(ctx context.Context, e model.AuditLogEntry) error {
	e.CreatedAt = fx.now
	id, err := outbox.Enqueue(ctx, fx.tx, outbox.KindAudit, e, fx.now)
	if err != nil {
		return err
	}
	fx.ids = append(fx.ids, id)
	return nil
}

// mutate runs fn against ref under the item lock and in one transaction,
// then delivers whatever fn queued.
func (s *Service) mutate(ctx context.Context, ref model.ItemRef, fn func(tx *sql.Tx, fx *effects) error) error {
	unlock, err := s.Locker.Lock(ctx, "item:"+ref.String())
	if err != nil {
		return apperr.Storage(err, "failed to lock item")
	}
	defer unlock()

	fx := &effects{now: s.now()}
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		fx.tx = tx
		return fn(tx, fx)
	})
	if err != nil {
		return apperr.Storage(err, "failed to save changes")
	}

	// Delivery problems are logged by the processor and retried later.
	s.Outbox.Flush(ctx, fx.ids)
	return nil
}

// attachItems resolves each claim's item so callers see current item data.
func (s *Service) attachItems(ctx context.Context, list []model.ClaimRequest) error {
	cache := make(map[model.ItemRef]*model.Item)
	for i := range list {
		ref := list[i].ItemRef()
		item, ok := cache[ref]
		if !ok {
			var err error
			item, err = store.GetItem(ctx, s.DB, ref)
			if err != nil {
				return apperr.Storage(err, "failed to load item")
			}
			cache[ref] = item
		}
		list[i].Item = item
	}
	return nil
}

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
