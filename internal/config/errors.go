package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

func wrapLoadError(err error) error {
	return fmt.Errorf("%w: %v", ErrLoadConfig, err)
}

func wrapValidationError(fields []string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
}
