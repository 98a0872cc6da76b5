// Package batch accumulates transformed entities and flushes them in
// size-bounded, deduplicated batches.
//
// Natural keys can legitimately repeat within one fetch window (the
// source occasionally duplicates rows), and the destination's
// uniqueness constraints would reject an entire batch containing the
// duplicate. Every flush therefore deduplicates by natural key first,
// with the last occurrence in fetch order winning.
package batch

import (
	"context"
	"fmt"
)

// Entity is anything with a natural key.
type Entity interface {
	Key() string
}

// FlushFunc receives a deduplicated batch ready for the destination.
type FlushFunc[T Entity] func(ctx context.Context, items []T) error

// Default buffer configuration.
const defaultThreshold = 200

// Buffer accumulates entities of one kind until the size threshold and
// then hands a deduplicated batch to the flush callback. Not safe for
// concurrent use; the pipeline is deliberately single-threaded.
type Buffer[T Entity] struct {
	threshold int
	items     []T
	flush     FlushFunc[T]
	flushed   int
}

// New creates a Buffer flushing through fn.
func New[T Entity](fn FlushFunc[T], opts ...Option) *Buffer[T] {
	cfg := config{threshold: defaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Buffer[T]{
		threshold: cfg.threshold,
		items:     make([]T, 0, cfg.threshold),
		flush:     fn,
	}
}

// Add appends an entity, flushing when the threshold is reached.
func (b *Buffer[T]) Add(ctx context.Context, item T) error {
	b.items = append(b.items, item)
	if len(b.items) >= b.threshold {
		return b.Flush(ctx)
	}
	return nil
}

// Flush deduplicates and writes any buffered entities. A failed flush
// keeps the batch buffered so the caller can checkpoint and retry.
func (b *Buffer[T]) Flush(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	deduped := Dedupe(b.items)
	if err := b.flush(ctx, deduped); err != nil {
		return fmt.Errorf("flush batch of %d: %w", len(deduped), err)
	}
	b.flushed += len(deduped)
	b.items = b.items[:0]
	return nil
}

// Len returns the number of currently buffered entities.
func (b *Buffer[T]) Len() int { return len(b.items) }

// Flushed returns the total number of entities written so far.
func (b *Buffer[T]) Flushed() int { return b.flushed }

// Dedupe collapses items sharing a natural key. The slot keeps its
// first position while the payload of the last occurrence wins.
func Dedupe[T Entity](items []T) []T {
	out := make([]T, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		k := item.Key()
		if at, seen := index[k]; seen {
			out[at] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
