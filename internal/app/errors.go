package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInterrupted marks a run stopped cooperatively by cancellation.
	// The checkpoint on disk resumes it.
	ErrInterrupted = errors.New("sync interrupted")

	// errLimitReached stops fetching once the per-stream record cap is
	// hit. Internal control flow, never returned to callers.
	errLimitReached = errors.New("record limit reached")
)
