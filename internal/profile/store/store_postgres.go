// Package store persists profile rows and their sub-records. The postgres
// implementation is pure I/O; branch logic stays in the signup services.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	txcontext "enrolld/pkg/platform/tx"
	"enrolld/pkg/platform/sentinel"
)

// memberIDConstraint is the unique constraint backing member-ID uniqueness.
// Violations of this constraint specifically are retryable (regenerate the
// ID); any other unique violation is a plain conflict.
const memberIDConstraint = "profiles_member_id_key"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) MemberIDExists(ctx context.Context, id domain.MemberID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE member_id = $1)`, id.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("member id lookup: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `
		SELECT email, member_id, first_name, last_name, date_of_birth, country, created_at, updated_at
		FROM profiles
		WHERE lower(email) = lower($1)
	`
	p, err := scanProfile(s.execer(ctx).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) InsertProfile(ctx context.Context, p models.Profile) error {
	query := `
		INSERT INTO profiles (email, member_id, first_name, last_name, date_of_birth, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	_, err := s.execer(ctx).ExecContext(ctx, query,
		p.Email, p.MemberID.String(), p.FirstName, p.LastName, p.DateOfBirth, p.Country, now, now)
	if err != nil {
		return classifyUnique(err, "insert profile")
	}
	return nil
}

func (s *PostgresStore) UpsertCoreFields(ctx context.Context, p models.Profile) error {
	// Inserts when no row exists yet (upgraded subscribers arrive with a
	// member ID but no profile row); the member ID of an existing row is
	// never touched.
	query := `
		INSERT INTO profiles (email, member_id, first_name, last_name, date_of_birth, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (lower(email)) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    date_of_birth = EXCLUDED.date_of_birth,
		    country = EXCLUDED.country,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		p.Email, p.MemberID.String(), p.FirstName, p.LastName, p.DateOfBirth, p.Country, time.Now()); err != nil {
		return fmt.Errorf("upsert profile core fields: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCredential(ctx context.Context, email, hash, salt string) error {
	query := `
		INSERT INTO profile_credentials (email, hash, salt, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, hash, salt, time.Now()); err != nil {
		return classifyUnique(err, "insert credential")
	}
	return nil
}

func (s *PostgresStore) UpdateCredential(ctx context.Context, email, hash, salt string) error {
	query := `
		INSERT INTO profile_credentials (email, hash, salt, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			hash = EXCLUDED.hash,
			salt = EXCLUDED.salt,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, hash, salt, time.Now()); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertMembership(ctx context.Context, email string, group domain.MembershipGroup, joinedAt time.Time) error {
	query := `
		INSERT INTO profile_memberships (email, group_name, joined_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, group.String(), joinedAt); err != nil {
		return classifyUnique(err, "insert membership")
	}
	return nil
}

func (s *PostgresStore) InsertNewsletterPref(ctx context.Context, email string, optedIn bool) error {
	query := `
		INSERT INTO newsletter_preferences (email, opted_in, updated_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, optedIn, time.Now()); err != nil {
		return classifyUnique(err, "insert newsletter preference")
	}
	return nil
}

func (s *PostgresStore) InsertContactDetail(ctx context.Context, email, phone, country string) error {
	query := `
		INSERT INTO contact_details (email, phone, country, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, phone, country, time.Now()); err != nil {
		return classifyUnique(err, "insert contact detail")
	}
	return nil
}

func (s *PostgresStore) UpsertContactDetail(ctx context.Context, email, phone, country string) error {
	query := `
		INSERT INTO contact_details (email, phone, country, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			phone = EXCLUDED.phone,
			country = EXCLUDED.country,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, email, phone, country, time.Now()); err != nil {
		return fmt.Errorf("upsert contact detail: %w", err)
	}
	return nil
}

// Transaction runs fn with a transaction carried in the context; store calls
// made with that context join it. Already-active transactions are joined, not
// nested.
func (s *PostgresStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	var memberID string
	if err := row.Scan(&p.Email, &memberID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Country, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.MemberID = domain.MemberID(memberID)
	return &p, nil
}

// classifyUnique maps unique violations onto sentinels: the member-ID
// constraint becomes ErrIDTaken (retryable with a regenerated ID), anything
// else duplicate becomes ErrConflict.
func classifyUnique(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == memberIDConstraint {
			return fmt.Errorf("%s: %w", op, sentinel.ErrIDTaken)
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
