// Package errors provides common domain error types for the meeting-insights
// processing core.
//
// This package defines sentinel errors for common domain conditions like
// "not found" or "already processing" that can be used across all packages.
// Using typed errors enables consistent error handling patterns with
// errors.Is() checks.
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested job or meeting was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessing indicates a job is already active for the meeting id.
	ErrAlreadyProcessing = errors.New("already processing")

	// ErrInvalidState indicates the operation is not valid for the current job state.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrProviderExhausted indicates all configured LLM providers failed
	// after exhausting their retry budgets.
	ErrProviderExhausted = errors.New("all providers exhausted")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyProcessing reports whether any error in err's chain is ErrAlreadyProcessing.
func IsAlreadyProcessing(err error) bool {
	return errors.Is(err, ErrAlreadyProcessing)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsProviderExhausted reports whether any error in err's chain is ErrProviderExhausted.
func IsProviderExhausted(err error) bool {
	return errors.Is(err, ErrProviderExhausted)
}
