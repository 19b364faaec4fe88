package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil_error", err: nil, expected: false},
		{name: "generic_error", err: errors.New("some error"), expected: false},
		{name: "not_found", err: ErrTaskNotFound, expected: true},
		{name: "wrapped_not_found", err: fmt.Errorf("get task: %w", ErrTaskNotFound), expected: true},
		{name: "unavailable", err: ErrStoreUnavailable, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestErrTaskAlreadyResolved_MatchesDomainError(t *testing.T) {
	err := fmt.Errorf("resolve: %w", ErrTaskAlreadyResolved)
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyResolved)
}
