// Package ledger keeps the durable, append-only record of incomplete side
// effects. An out-of-band reconciliation job replays unresolved records; this
// service only guarantees the write side.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"enrolld/pkg/requestcontext"
)

// Status of a failure record.
type Status string

const (
	StatusNew      Status = "new"
	StatusRetried  Status = "retried"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Record is one logged failure with enough payload to replay the sub-write.
type Record struct {
	ID            uuid.UUID
	CorrelationID string
	Subsystem     string
	Operation     string
	Payload       json.RawMessage
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store persists failure records.
type Store interface {
	Insert(ctx context.Context, record Record) error
	ListUnresolved(ctx context.Context) ([]Record, error)
	MarkResolved(ctx context.Context, id uuid.UUID) error
}

// Ledger is the write-side service. Record never fails upward: a ledger
// outage must not mask the error being recorded.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends a failure record. Marshal or insert failures are logged and
// swallowed; the caller's original error stays the one that surfaces.
func (l *Ledger) Record(ctx context.Context, subsystem, operation string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		l.logger.ErrorContext(ctx, "failure ledger payload not serializable",
			"subsystem", subsystem,
			"operation", operation,
			"error", err,
		)
		encoded = nil
	}

	record := Record{
		ID:            uuid.New(),
		CorrelationID: requestcontext.CorrelationID(ctx),
		Subsystem:     subsystem,
		Operation:     operation,
		Payload:       encoded,
		Status:        StatusNew,
	}

	if err := l.store.Insert(ctx, record); err != nil {
		l.logger.ErrorContext(ctx, "failure ledger write failed",
			"subsystem", subsystem,
			"operation", operation,
			"error", err,
		)
	}
}
