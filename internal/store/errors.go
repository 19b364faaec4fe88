package store

import (
	"errors"

	"github.com/phrazzld/gamegen-api/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrTaskNotFound is returned when no task was ever created with the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskAlreadyResolved is returned when a terminal transition is requested
	// for a task that already reached a terminal state. It wraps the domain error
	// so callers can match either.
	ErrTaskAlreadyResolved = domain.ErrTaskAlreadyResolved

	// ErrInvalidEntity is returned when a record fails validation before or
	// after being stored. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrDuplicate is returned when a create would collide with an existing ID.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("task store unavailable")
)

// IsNotFoundError reports whether err is a task-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}
