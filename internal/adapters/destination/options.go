package destination

import (
	"time"

	"github.com/edupulse/edusync/pkg/logger"
)

// Option configures a PGStore.
type Option func(*PGStore)

// WithWriteRetries sets how many times a failing batch is retried
// before bisection kicks in.
func WithWriteRetries(n int) Option {
	return func(s *PGStore) {
		if n >= 0 {
			s.retry.maxRetries = n
		}
	}
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(s *PGStore) {
		if d > 0 {
			s.retry.retryInterval = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(log logger.Logger) Option {
	return func(s *PGStore) {
		if log != nil {
			s.retry.log = log
		}
	}
}
