package backend

import "fmt"

// ConnectionError indicates the messages API could not be reached at all.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("anthropic connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RateLimitError indicates the messages API returned HTTP 429.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("anthropic rate limit exceeded: %s", e.Message)
}

// StatusError indicates a non-success status other than rate limiting.
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("anthropic API error (%d): %s", e.StatusCode, e.Message)
}
