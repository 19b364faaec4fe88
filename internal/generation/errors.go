package generation

import "errors"

// Common errors returned by generation backends
var (
	// ErrNoOutput is returned when the backend answered but produced no usable text
	ErrNoOutput = errors.New("language model produced no output")

	// ErrGenerationFailed is returned when generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate text")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsNoOutput reports whether err means the backend yielded nothing usable,
// as opposed to a fault while producing it.
func IsNoOutput(err error) bool {
	return errors.Is(err, ErrNoOutput) || errors.Is(err, ErrContentBlocked)
}
