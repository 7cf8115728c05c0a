// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/state layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidFilter indicates a product filter that breaks its invariants.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrValidation indicates a payload rejected before reaching storage.
	ErrValidation = errors.New("validation")
)

// FallbackMessage is surfaced in state when a failure carries no text.
const FallbackMessage = "Unknown error..."

// Message returns the state-visible text of err.
func Message(err error) string {
	if err == nil || err.Error() == "" {
		return FallbackMessage
	}
	return err.Error()
}
