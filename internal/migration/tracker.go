// Package migration tracks per-record bookkeeping for batch signup runs and
// drives the runs themselves. Tracker state is observability only; it is
// never consulted for correctness decisions.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"enrolld/pkg/domain"
)

// EntryState of one batch entry. Last write wins.
type EntryState string

const (
	StatePending EntryState = "pending"
	StateApplied EntryState = "applied_to_identity_provider"
	StateError   EntryState = "error"
	StateSkipped EntryState = "skipped"
)

// Entry is one tracked record of a batch run, keyed by (email, batch).
type Entry struct {
	Email     string
	BatchID   domain.BatchID
	State     EntryState
	UpdatedAt time.Time
}

// Store persists batch entries via idempotent upserts.
type Store interface {
	Upsert(ctx context.Context, email string, batchID domain.BatchID, state EntryState) error
	ListByBatch(ctx context.Context, batchID domain.BatchID) ([]Entry, error)
}

// Tracker is the bookkeeping service.
type Tracker struct {
	store  Store
	logger *slog.Logger
}

type TrackerOption func(*Tracker)

func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

func NewTracker(store Store, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("tracker store is required")
	}
	t := &Tracker{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tracker) MarkApplied(ctx context.Context, email string, batchID domain.BatchID) error {
	return t.mark(ctx, email, batchID, StateApplied)
}

func (t *Tracker) MarkError(ctx context.Context, email string, batchID domain.BatchID) error {
	return t.mark(ctx, email, batchID, StateError)
}

func (t *Tracker) MarkSkipped(ctx context.Context, email string, batchID domain.BatchID) error {
	return t.mark(ctx, email, batchID, StateSkipped)
}

func (t *Tracker) mark(ctx context.Context, email string, batchID domain.BatchID, state EntryState) error {
	if batchID.IsNil() {
		return nil
	}
	if err := t.store.Upsert(ctx, email, batchID, state); err != nil {
		// Tracker writes are observability; log and report, callers decide
		// whether to care.
		t.logger.WarnContext(ctx, "batch entry update failed",
			"email", email,
			"batch_id", batchID,
			"state", state,
			"error", err,
		)
		return err
	}
	return nil
}
