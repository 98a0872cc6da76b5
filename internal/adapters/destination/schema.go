package destination

import (
	"context"
	"fmt"
)

// schemaStatements creates the destination tables when they do not
// exist. The unique constraints double as the upsert conflict targets
// and are the real idempotency guard between racing runs.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS establishments (
		id            TEXT PRIMARY KEY,
		source_id     TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		uses_calendar_year BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		establishment_id TEXT NOT NULL REFERENCES establishments(id),
		academic_year TEXT NOT NULL,
		year_group    TEXT NOT NULL DEFAULT '',
		course        TEXT NOT NULL DEFAULT '',
		faculty       TEXT NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (email, academic_year)
	)`,
	`CREATE TABLE IF NOT EXISTS assessment_scores (
		student_id    TEXT NOT NULL REFERENCES students(id),
		cycle         SMALLINT NOT NULL,
		academic_year TEXT NOT NULL,
		vision        SMALLINT,
		effort        SMALLINT,
		systems       SMALLINT,
		practice      SMALLINT,
		attitude      SMALLINT,
		overall       NUMERIC(4,2),
		completed_at  TIMESTAMPTZ,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (student_id, cycle, academic_year)
	)`,
	`CREATE TABLE IF NOT EXISTS question_responses (
		student_id    TEXT NOT NULL REFERENCES students(id),
		cycle         SMALLINT NOT NULL,
		academic_year TEXT NOT NULL,
		question_id   TEXT NOT NULL,
		value         SMALLINT NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (student_id, cycle, academic_year, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		student_id    TEXT NOT NULL REFERENCES students(id),
		cycle         SMALLINT NOT NULL,
		comment_type  TEXT NOT NULL,
		body          TEXT NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (student_id, cycle, comment_type)
	)`,
	`CREATE TABLE IF NOT EXISTS statistics (
		establishment_id TEXT NOT NULL,
		cycle          SMALLINT NOT NULL,
		academic_year  TEXT NOT NULL,
		element        TEXT NOT NULL,
		sample_count   INTEGER NOT NULL,
		mean           DOUBLE PRECISION NOT NULL,
		std_dev        DOUBLE PRECISION NOT NULL,
		min            DOUBLE PRECISION NOT NULL,
		max            DOUBLE PRECISION NOT NULL,
		p25            DOUBLE PRECISION NOT NULL,
		p50            DOUBLE PRECISION NOT NULL,
		p75            DOUBLE PRECISION NOT NULL,
		histogram      JSONB NOT NULL DEFAULT '{}',
		low_confidence BOOLEAN NOT NULL DEFAULT FALSE,
		computed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (establishment_id, cycle, academic_year, element)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id      TEXT PRIMARY KEY,
		status      TEXT NOT NULL,
		dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		counters    JSONB NOT NULL DEFAULT '{}',
		error       TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates any missing destination tables.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
