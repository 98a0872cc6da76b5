package destination

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/edupulse/edusync/pkg/logger"
	"github.com/edupulse/edusync/pkg/metrics"
)

// Default write retry configuration.
const (
	defaultWriteRetries  = 3
	defaultRetryInterval = 250 * time.Millisecond
)

// retryConfig is shared by every entity-kind writer.
type retryConfig struct {
	maxRetries    int
	retryInterval time.Duration
	log           logger.Logger
}

// execFn writes one batch in a single round trip.
type execFn[T any] func(ctx context.Context, rows []T) error

// upsert retries a whole batch with backoff and falls back to
// bisection, then records flush metrics on success. One malformed row
// never discards an otherwise-valid batch: isolated row failures are
// logged and counted, not returned.
func upsert[T any](ctx context.Context, cfg retryConfig, entity string, rows []T, exec execFn[T]) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	if err := writeBisecting(ctx, cfg, entity, rows, exec); err != nil {
		return err
	}
	metrics.RecordBatchFlushed(entity, len(rows))
	metrics.RecordFlushDuration(entity, time.Since(start).Seconds())
	return nil
}

// writeBisecting writes rows, retrying the whole slice first and
// splitting progressively on exhaustion until single-row writes
// isolate the offending rows.
func writeBisecting[T any](ctx context.Context, cfg retryConfig, entity string, rows []T, exec execFn[T]) error {
	err := retryBatch(ctx, cfg, entity, rows, exec)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if len(rows) == 1 {
		metrics.RecordRowFailure(entity)
		cfg.log.Error(ctx, "row failed to upsert, skipping",
			logger.String("entity", entity),
			logger.Error(err))
		return nil
	}

	metrics.RecordBatchBisection()
	cfg.log.Warn(ctx, "batch upsert failed, bisecting",
		logger.String("entity", entity),
		logger.Int("rows", len(rows)),
		logger.Error(err))

	mid := len(rows) / 2
	if err := writeBisecting(ctx, cfg, entity, rows[:mid], exec); err != nil {
		return err
	}
	return writeBisecting(ctx, cfg, entity, rows[mid:], exec)
}

func retryBatch[T any](ctx context.Context, cfg retryConfig, entity string, rows []T, exec execFn[T]) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.retryInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		metrics.RecordUpsertRetry()
		cfg.log.Warn(ctx, "retrying batch upsert",
			logger.String("entity", entity),
			logger.Int("rows", len(rows)),
			logger.Duration("backoff", wait),
			logger.Error(err))
	}
	return backoff.RetryNotify(func() error { return exec(ctx, rows) }, bo, notify)
}
