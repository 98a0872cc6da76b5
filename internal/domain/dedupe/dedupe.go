// Package dedupe tracks natural keys already processed within a sync
// run so a resumed run never double-counts records.
package dedupe

import (
	"context"
	"sort"
	"sync"
)

// Tracker records processed natural keys. The set is persisted into the
// checkpoint via Snapshot and rebuilt on resume via Restore.
type Tracker interface {
	// SeenAndRecord atomically checks if key was seen and records it if
	// not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to be retried after a failed
	// flush.
	Unrecord(ctx context.Context, key string)

	// Snapshot returns all recorded keys in sorted order.
	Snapshot() []string

	// Restore replaces the recorded set with keys.
	Restore(keys []string)

	Size() int
}

// inMemoryTracker implements Tracker with a plain map. The set is
// unbounded on purpose: evicting a key would reintroduce the double
// counting the tracker exists to prevent, and the key space is capped
// by the size of one sync window.
type inMemoryTracker struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewTracker creates an empty in-memory tracker.
func NewTracker() Tracker {
	return &inMemoryTracker{seen: make(map[string]struct{})}
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.seen[key]; exists {
		return true
	}
	t.seen[key] = struct{}{}
	return false
}

func (t *inMemoryTracker) Unrecord(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, key)
}

func (t *inMemoryTracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.seen))
	for k := range t.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *inMemoryTracker) Restore(keys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seen = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		t.seen[k] = struct{}{}
	}
}

func (t *inMemoryTracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.seen)
}
