package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"enrolld/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, email string, batchID domain.BatchID, state EntryState) error {
	query := `
		INSERT INTO migration_batch_entries (email, batch_id, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, batch_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, email, batchID.String(), string(state), time.Now()); err != nil {
		return fmt.Errorf("upsert batch entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByBatch(ctx context.Context, batchID domain.BatchID) ([]Entry, error) {
	query := `
		SELECT email, batch_id, state, updated_at
		FROM migration_batch_entries
		WHERE batch_id = $1
		ORDER BY email
	`
	rows, err := s.db.QueryContext(ctx, query, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("list batch entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var batch, state string
		if err := rows.Scan(&e.Email, &batch, &state, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan batch entry: %w", err)
		}
		e.BatchID = domain.BatchID(batch)
		e.State = EntryState(state)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
