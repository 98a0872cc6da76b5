package source

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrTransient marks a fetch that failed after exhausting retries on
	// retryable conditions (timeouts, 5xx, rate limiting). The
	// orchestrator checkpoints and stops the stream on seeing it.
	ErrTransient = errors.New("transient source failure")

	// ErrRequest marks a non-retryable request failure (4xx).
	ErrRequest = errors.New("source request rejected")
)
