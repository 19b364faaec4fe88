package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/phrazzld/gamegen-api/internal/task"
)

// User-facing error messages
const (
	MsgNoPrompt       = "No prompt provided"
	MsgTaskNotFound   = "Task not found"
	MsgQueueFull      = "Too many pending tasks, try again later"
	MsgUnavailable    = "Task service unavailable"
	MsgUnexpectedFail = "An unexpected error occurred"
)

// ErrInvalidTaskID is returned when the path id is not a UUID.
var ErrInvalidTaskID = errors.New("invalid task id")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Ids that are not UUIDs cannot name a task, so they are reported the
	// same way as unknown ones.
	case store.IsNotFoundError(err),
		errors.Is(err, ErrInvalidTaskID):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return MsgUnexpectedFail

	case errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, store.ErrInvalidEntity):
		return MsgNoPrompt

	case store.IsNotFoundError(err),
		errors.Is(err, ErrInvalidTaskID):
		return MsgTaskNotFound

	case errors.Is(err, task.ErrQueueFull):
		return MsgQueueFull

	case errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, store.ErrStoreUnavailable):
		return MsgUnavailable

	default:
		return MsgUnexpectedFail
	}
}
