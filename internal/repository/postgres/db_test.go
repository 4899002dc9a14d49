package postgres

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"freight/internal/repository"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, repository.ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505", Message: "duplicate key"}, repository.ErrConflict},
		{"foreign key violation", &pq.Error{Code: "23503", Message: "missing driver"}, repository.ErrConflict},
		{"other driver error", other, other},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	assert.NoError(t, mapError(nil))

	check := &pq.Error{Code: "23514", Message: "amount check"}
	assert.Same(t, check, mapError(check), "unmapped constraint errors pass through")
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	assert.False(t, nullString("").Valid)
	assert.Equal(t, sql.NullString{String: "D1", Valid: true}, nullString("D1"))

	assert.False(t, nullTime(time.Time{}).Valid)
	now := time.Now()
	assert.Equal(t, sql.NullTime{Time: now, Valid: true}, nullTime(now))
}

func TestSchemaEmbedded(t *testing.T) {
	t.Parallel()

	for _, table := range []string{
		"loads", "load_documents", "load_status_history", "drivers", "trucks", "trailers",
		"users", "organization_settings", "settlements", "settlement_deductions", "driver_advances",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
