package embedder

import (
	"errors"
	"time"
)

// EmbeddingError represents an error from embedding operations with helpful context.
type EmbeddingError struct {
	Code       string
	Message    string
	Suggestion string
	Retryable  bool
	RetryAfter time.Duration
	Cause      error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Suggestion == "" {
		return msg
	}
	return msg + ". " + e.Suggestion
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}

// Is matches errors with the same Code, so copies made by WithCause still
// compare equal to the predefined errors.
func (e *EmbeddingError) Is(target error) bool {
	t, ok := target.(*EmbeddingError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *EmbeddingError) WithCause(cause error) *EmbeddingError {
	return &EmbeddingError{
		Code:       e.Code,
		Message:    e.Message,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
		RetryAfter: e.RetryAfter,
		Cause:      cause,
	}
}

// WithRetryAfter returns a copy of the error with the given retry duration.
func (e *EmbeddingError) WithRetryAfter(d time.Duration) *EmbeddingError {
	return &EmbeddingError{
		Code:       e.Code,
		Message:    e.Message,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
		RetryAfter: d,
		Cause:      e.Cause,
	}
}

// Predefined embedding errors
var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = &EmbeddingError{
		Code:       "RATE_LIMITED",
		Message:    "inference API rate limit exceeded",
		Suggestion: "Set HF_TOKEN to raise the limit, or wait and retry",
		Retryable:  true,
	}

	// ErrAuthFailed indicates invalid API credentials
	ErrAuthFailed = &EmbeddingError{
		Code:       "AUTH_FAILED",
		Message:    "inference API rejected the credentials",
		Suggestion: "Check the HF_TOKEN environment variable",
		Retryable:  false,
	}

	// ErrModelNotFound indicates the endpoint does not serve the model
	ErrModelNotFound = &EmbeddingError{
		Code:       "MODEL_NOT_FOUND",
		Message:    "embedding model not found at the inference endpoint",
		Suggestion: "Check model.base_url points at a feature-extraction endpoint serving " + ModelID,
		Retryable:  false,
	}

	// ErrModelLoading indicates the endpoint is still loading the model
	ErrModelLoading = &EmbeddingError{
		Code:      "MODEL_LOADING",
		Message:   "embedding model is still loading",
		Retryable: true,
	}

	// ErrProviderUnavailable indicates the embedding provider is not responding
	ErrProviderUnavailable = &EmbeddingError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "embedding provider is not responding",
		Suggestion: "Check your network connection and provider status",
		Retryable:  true,
	}

	// ErrRequestFailed indicates an unexpected non-success response
	ErrRequestFailed = &EmbeddingError{
		Code:      "REQUEST_FAILED",
		Message:   "embedding request failed",
		Retryable: false,
	}

	// ErrInvalidResponse indicates the response body could not be decoded
	ErrInvalidResponse = &EmbeddingError{
		Code:      "INVALID_RESPONSE",
		Message:   "received invalid response from the inference API",
		Retryable: false,
	}

	// ErrUnknownBackend indicates the configured backend does not exist
	ErrUnknownBackend = &EmbeddingError{
		Code:       "UNKNOWN_BACKEND",
		Message:    "unknown embedding backend",
		Suggestion: "Set model.backend to huggingface or local",
		Retryable:  false,
	}
)

// IsRetryableError returns true if the error is retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Retryable
	}
	return false
}

// GetRetryAfter returns the retry-after duration from an error, or 0 if not available.
func GetRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.RetryAfter
	}
	return 0
}
