package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no_rows", err: sql.ErrNoRows, expected: store.ErrTaskNotFound},
		{name: "wrapped_no_rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), expected: store.ErrTaskNotFound},
		{name: "deadline", err: context.DeadlineExceeded, expected: store.ErrStoreUnavailable},
		{name: "unique", err: &pgconn.PgError{Code: uniqueViolationCode}, expected: store.ErrDuplicate},
		{
			name:     "check",
			err:      &pgconn.PgError{Code: checkViolationCode, ConstraintName: "generation_tasks_status_check"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "not_null",
			err:      &pgconn.PgError{Code: notNullViolationCode, ColumnName: "prompt"},
			expected: store.ErrInvalidEntity,
		},
		{name: "connection", err: &pgconn.PgError{Code: "08006"}, expected: store.ErrStoreUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			assert.ErrorIs(t, mapped, tc.expected)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, MapError(nil))

	original := errors.New("something else")
	assert.Same(t, original, MapError(original))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), MapError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
