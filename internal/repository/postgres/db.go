package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"freight/internal/repository"
)

//go:embed schema.sql
var schema string

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier          = (*sql.DB)(nil)
	_ Querier          = (*sql.Tx)(nil)
	_ repository.Store = (*Store)(nil)
)

// Migrate creates the tables and indexes used by the repositories.
// Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repositories returns repositories that run outside any transaction.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.db)
}

// WithinTx runs fn in a database transaction and commits if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func newRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Loads:       &LoadRepository{q: q},
		History:     &HistoryRepository{q: q},
		Drivers:     &DriverRepository{q: q},
		Trucks:      &TruckRepository{q: q},
		Trailers:    &TrailerRepository{q: q},
		Users:       &UserRepository{q: q},
		Settings:    &SettingsRepository{q: q},
		Settlements: &SettlementRepository{q: q},
		Entries:     &LedgerEntryRepository{q: q},
		Advances:    &AdvanceRepository{q: q},
	}
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23503": // unique_violation, foreign_key_violation
			return fmt.Errorf("%w: %s", repository.ErrConflict, pqErr.Message)
		}
	}
	return err
}

// requireAffected returns ErrNotFound when a write touched no row.
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
