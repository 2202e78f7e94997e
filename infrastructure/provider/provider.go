// Package provider implements embedding providers for proposal text.
package provider

import "context"

// Embedder generates embedding vectors for proposal texts. Implementations
// own their transport concerns (rate limiting, retry); callers own
// sub-batching via Capacity and fan-out via Parallelism.
type Embedder interface {
	// Embed generates one vector per input text, in input order. The number
	// of texts must not exceed Capacity().
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the fixed vector dimension this provider produces.
	Dimension() int

	// Model returns the model identifier, for logging.
	Model() string

	// Capacity returns the maximum number of texts per Embed call.
	Capacity() int

	// Parallelism returns how many Embed calls may usefully run at once.
	Parallelism() int

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderError wraps provider errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if available.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the error message.
func (e *ProviderError) Message() string { return e.message }

// IsRateLimited returns true if the error is due to rate limiting.
func (e *ProviderError) IsRateLimited() bool {
	return e.statusCode == 429
}
