package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edupulse/edusync/pkg/logger"
	"github.com/edupulse/edusync/pkg/metrics"
)

// Store reads and writes the checkpoint blob. Exactly one process owns
// the file at a time; concurrent runs against the same checkpoint are
// prevented by the caller's scheduler lock, not here.
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a Store persisting at path.
func NewStore(path string) *Store {
	return &Store{path: path, log: logger.Named("checkpoint")}
}

// Load reads the persisted checkpoint. A missing file returns (nil,
// nil): the run starts fresh at page 1 for every stream.
func (s *Store) Load(_ context.Context) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if cp.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: found v%d, want v%d", ErrVersionMismatch, cp.Version, SchemaVersion)
	}
	if cp.Streams == nil {
		cp.Streams = make(map[string]StreamCursor)
	}
	if cp.ProcessedKeys == nil {
		cp.ProcessedKeys = make(map[string][]string)
	}
	if cp.Counters == nil {
		cp.Counters = make(map[string]int64)
	}
	return &cp, nil
}

// Save atomically persists the checkpoint via a temp file and rename,
// so an interrupted save never leaves a half-written blob behind.
func (s *Store) Save(ctx context.Context, cp *Checkpoint) error {
	cp.Version = SchemaVersion
	cp.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace checkpoint: %w", err)
	}

	metrics.RecordCheckpointSave()
	s.log.Debug(ctx, "checkpoint saved", logger.String("path", s.path), logger.String("run_id", cp.RunID))
	return nil
}

// Clear removes the checkpoint after a successful full run.
func (s *Store) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	s.log.Debug(ctx, "checkpoint cleared", logger.String("path", s.path))
	return nil
}
