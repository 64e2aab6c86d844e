package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO failure_ledger (id, correlation_id, subsystem, operation, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.CorrelationID, record.Subsystem, record.Operation,
		[]byte(record.Payload), string(record.Status), now, now)
	if err != nil {
		return fmt.Errorf("insert failure record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnresolved(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, correlation_id, subsystem, operation, payload, status, created_at, updated_at
		FROM failure_ledger
		WHERE status IN ('new', 'retried')
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unresolved failure records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var status string
		var payload []byte
		if err := rows.Scan(&r.ID, &r.CorrelationID, &r.Subsystem, &r.Operation, &payload, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failure record: %w", err)
		}
		r.Status = Status(status)
		r.Payload = payload
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) MarkResolved(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE failure_ledger SET status = 'resolved', updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark failure record resolved: %w", err)
	}
	return nil
}
