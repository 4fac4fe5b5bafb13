package core

import "github.com/git-pkgs/pup/client"

// ErrNotFound is returned when a project or version is not found.
var ErrNotFound = client.ErrNotFound

type (
	// HTTPError represents an HTTP error response.
	HTTPError = client.HTTPError
	// NotFoundError wraps ErrNotFound with additional context.
	NotFoundError = client.NotFoundError
	// RateLimitError is returned when the index rate limits requests.
	RateLimitError = client.RateLimitError
	// ResponseTooLargeError is returned when a response exceeds the size limit.
	ResponseTooLargeError = client.ResponseTooLargeError
)
