// Package checkpoint persists sync progress so an interrupted run can
// resume without refetching completed pages or double-counting records.
package checkpoint

import (
	"time"
)

// SchemaVersion guards the on-disk layout. A checkpoint written by a
// build with a different field set must fail loudly on load rather
// than silently mis-deserialize.
const SchemaVersion = 1

// StreamCursor is the per-stream progress marker.
type StreamCursor struct {
	// NextPage is the first page not yet fully processed (1-based).
	NextPage int `json:"next_page"`
	// Done marks a stream whose full pass completed; the orchestrator
	// skips it on resume.
	Done bool `json:"done"`
}

// Checkpoint is the durable progress record of one sync run. It is
// advisory: losing it only forces refetching already-fetched pages,
// never corruption, because all destination writes are idempotent
// upserts.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Streams map[string]StreamCursor `json:"streams"`

	// ProcessedKeys guards against double counting on resume: natural
	// keys flushed before the interruption, per stream.
	ProcessedKeys map[string][]string `json:"processed_keys"`

	// Counters carries the running totals of the interrupted run.
	Counters map[string]int64 `json:"counters"`
}

// New creates a fresh checkpoint for a run.
func New(runID string, now time.Time) *Checkpoint {
	return &Checkpoint{
		Version:       SchemaVersion,
		RunID:         runID,
		StartedAt:     now,
		UpdatedAt:     now,
		Streams:       make(map[string]StreamCursor),
		ProcessedKeys: make(map[string][]string),
		Counters:      make(map[string]int64),
	}
}

// Cursor returns the cursor for a stream; absent streams start at page 1.
func (c *Checkpoint) Cursor(stream string) StreamCursor {
	if cur, ok := c.Streams[stream]; ok {
		return cur
	}
	return StreamCursor{NextPage: 1}
}

// Advance records that every page before nextPage is fully processed.
func (c *Checkpoint) Advance(stream string, nextPage int) {
	cur := c.Cursor(stream)
	cur.NextPage = nextPage
	c.Streams[stream] = cur
}

// MarkDone marks a stream's pass complete.
func (c *Checkpoint) MarkDone(stream string) {
	cur := c.Cursor(stream)
	cur.Done = true
	c.Streams[stream] = cur
}

// Done reports whether a stream completed its pass.
func (c *Checkpoint) Done(stream string) bool {
	return c.Streams[stream].Done
}
