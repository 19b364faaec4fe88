package domain

import "errors"

// Common domain errors
var (
	// ErrEmptyPrompt is returned when a task is requested without a prompt
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrTaskAlreadyResolved is returned when a terminal task is asked to transition again
	ErrTaskAlreadyResolved = errors.New("task already resolved")

	// ErrInvalidStatus is returned when a status string is not a known task status
	ErrInvalidStatus = errors.New("invalid task status")
)
