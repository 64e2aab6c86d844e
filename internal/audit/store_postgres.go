package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "enrolld/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox
// worker.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// Event for deserialization by consumers.
type outboxPayload struct {
	ID            string `json:"ID"`
	Timestamp     string `json:"Timestamp"`
	Email         string `json:"Email"`
	Action        string `json:"Action"`
	Outcome       string `json:"Outcome"`
	MemberID      string `json:"MemberID,omitempty"`
	Source        string `json:"Source,omitempty"`
	CorrelationID string `json:"CorrelationID,omitempty"`
	BatchID       string `json:"BatchID,omitempty"`
	Detail        string `json:"Detail,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:            eventID.String(),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Email:         event.Email,
		Action:        string(event.Action),
		Outcome:       string(event.Outcome),
		MemberID:      event.MemberID.String(),
		Source:        event.Source,
		CorrelationID: event.CorrelationID,
		BatchID:       event.BatchID.String(),
		Detail:        event.Detail,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, eventID, string(event.Action), payloadBytes, time.Now()); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Unpublished returns up to limit pending outbox entries in insertion order.
func (s *PostgresStore) Unpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, event_type, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps an outbox entry after a successful Kafka produce.
func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}

// OutboxEntry is one pending audit event awaiting publication.
type OutboxEntry struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
}
