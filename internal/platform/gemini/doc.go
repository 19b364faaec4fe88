// Package gemini provides a generation.Generator backed by Google's Gemini API.
//
// The adapter wraps the caller's prompt in an optional text template, calls
// the model with the configured output limits, and retries transient
// failures with exponential backoff and jitter. Safety blocks and empty
// candidates are reported as generation.ErrContentBlocked and
// generation.ErrNoOutput so the task runner can tell "nothing usable" apart
// from a fault.
package gemini
