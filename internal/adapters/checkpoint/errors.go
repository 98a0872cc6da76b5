package checkpoint

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrVersionMismatch marks a checkpoint written by a build with a
	// different schema. Resuming over it would mis-deserialize, so the
	// run aborts instead.
	ErrVersionMismatch = errors.New("checkpoint schema version mismatch")

	// ErrCorrupt marks an unreadable checkpoint blob.
	ErrCorrupt = errors.New("corrupt checkpoint")
)
