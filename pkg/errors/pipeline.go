package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified pipeline error.
type ErrorCode string

const (
	// ErrTransientProvider covers provider-side failures worth retrying:
	// rate limits, 5xx responses, connection resets.
	ErrTransientProvider ErrorCode = "transient_provider"

	// ErrTimeout means an operation exceeded its deadline. At the agent
	// boundary this triggers the local fallback, never a retry loop.
	ErrTimeout ErrorCode = "timeout"

	// ErrMalformedResponse means a provider answered but the payload failed
	// shape validation for the caller's expected result.
	ErrMalformedResponse ErrorCode = "malformed_response"

	// ErrUpstreamDependency marks a fatal collaborator failure
	// (transcription). The owning job transitions to its error state.
	ErrUpstreamDependency ErrorCode = "upstream_dependency"

	// ErrCodeNotFound marks lookups of unknown job or meeting ids.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrContextCancelled marks caller-initiated cancellation.
	ErrContextCancelled ErrorCode = "context_cancelled"

	// ErrProcessing is the catch-all for unclassified failures.
	ErrProcessing ErrorCode = "processing_error"
)

// retryable maps each code to whether the failure is worth retrying.
// Timeouts are not retried: the agent-level contract is to fall back
// instead of stacking a retry budget on top of a blown deadline.
var retryable = map[ErrorCode]bool{
	ErrTransientProvider:  true,
	ErrTimeout:            false,
	ErrMalformedResponse:  false,
	ErrUpstreamDependency: false,
	ErrCodeNotFound:       false,
	ErrContextCancelled:   false,
	ErrProcessing:         false,
}

// PipelineError is a structured error for pipeline failures.
type PipelineError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *PipelineError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)", e.Code, e.Stage, e.Duration.Truncate(time.Millisecond), e.Timeout.Truncate(time.Millisecond))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError with an explicit code.
func NewPipelineError(code ErrorCode, stage, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Cause: cause}
}

// ClassifyError inspects an error and returns a *PipelineError with the
// appropriate code. If the error doesn't match any known pattern, it returns
// a PipelineError with ErrProcessing.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	out := &PipelineError{
		Stage: stage,
		Cause: err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Code = ErrTimeout
		out.Message = "operation timed out"
		return out
	}

	if errors.Is(err, context.Canceled) {
		out.Code = ErrContextCancelled
		out.Message = "operation cancelled"
		return out
	}

	if errors.Is(err, ErrNotFound) {
		out.Code = ErrCodeNotFound
		out.Message = err.Error()
		return out
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "429"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "quota exceeded"):
		out.Code = ErrTransientProvider

	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "503"),
		strings.Contains(lower, "502"),
		strings.Contains(lower, "no such host"):
		out.Code = ErrTransientProvider

	case strings.Contains(lower, "unmarshal"),
		strings.Contains(lower, "unexpected end of json"),
		strings.Contains(lower, "missing required field"),
		strings.Contains(lower, "malformed"):
		out.Code = ErrMalformedResponse

	case strings.Contains(lower, "transcription"),
		strings.Contains(lower, "diarization"):
		out.Code = ErrUpstreamDependency

	default:
		out.Code = ErrProcessing
	}

	out.Message = msg
	return out
}

// IsTimeout returns true if the error classifies as a timeout.
func IsTimeout(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return retryable[pe.Code]
	}
	return false
}
