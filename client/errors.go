package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a project or version is not found on an index.
var ErrNotFound = errors.New("not found")

// HTTPError represents an unexpected HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// Retryable reports whether the request may succeed if repeated.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500
}

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Target  string
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: project %s version %s not found", e.Target, e.Name, e.Version)
	}
	return fmt.Sprintf("%s: project %s not found", e.Target, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError is returned when the index rate limits requests.
type RateLimitError struct {
	URL        string
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s, retry after %d seconds", e.URL, e.RetryAfter)
}

// ResponseTooLargeError is returned when a response body exceeds the
// client's size limit.
type ResponseTooLargeError struct {
	URL   string
	Limit int64
}

func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response from %s exceeds %d bytes", e.URL, e.Limit)
}
