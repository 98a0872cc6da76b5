// Package destination writes canonical entities into the relational
// destination store with idempotent, batched upserts.
package destination

import (
	"context"
	"time"

	"github.com/edupulse/edusync/internal/domain/calendar"
	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/internal/domain/stats"
)

// RunRecord is the persisted summary row of one sync run.
type RunRecord struct {
	RunID      string
	Status     string // running, success, partial, failed
	DryRun     bool
	StartedAt  time.Time
	FinishedAt *time.Time
	Counters   map[string]int64
	Error      string
}

// ScoreRow is one stored assessment score joined with the owning
// student's establishment.
type ScoreRow struct {
	EstablishmentID string
	Cycle           int
	AcademicYear    string
	Vision          *int
	Effort          *int
	Systems         *int
	Practice        *int
	Attitude        *int
	Overall         *float64
}

// Store is the destination contract consumed by the orchestrator. The
// pgx implementation is the live path; the memory implementation backs
// dry runs and tests.
type Store interface {
	// Upserts are idempotent and keyed on each entity's natural-key
	// columns; within a deduplicated batch the later write wins.
	UpsertEstablishments(ctx context.Context, rows []model.Establishment) error
	UpsertStudents(ctx context.Context, rows []model.Student) error
	UpsertScores(ctx context.Context, rows []model.AssessmentScore) error
	UpsertResponses(ctx context.Context, rows []model.QuestionResponse) error
	UpsertComments(ctx context.Context, rows []model.Comment) error
	UpsertStatistics(ctx context.Context, rows []stats.Summary) error

	// EstablishmentMaps preloads destination id and calendar convention
	// per source id for cross-reference resolution.
	EstablishmentMaps(ctx context.Context) (bySource map[string]string, convByID map[string]calendar.Convention, err error)

	// StudentMap preloads destination student ids keyed by natural key.
	StudentMap(ctx context.Context) (map[string]string, error)

	// ScoreCycles returns the cycles currently stored per student within
	// one academic-year partition.
	ScoreCycles(ctx context.Context, academicYear string) (map[string][]int, error)

	// DeleteScoreCycles removes score and response rows for the given
	// student cycles, scoped to the academic-year partition. Returns the
	// number of score rows removed.
	DeleteScoreCycles(ctx context.Context, academicYear, studentID string, cycles []int) (int64, error)

	// ScoreRows returns stored scores joined with each student's
	// establishment, for one academic-year partition. Feeds the
	// statistics stage.
	ScoreRows(ctx context.Context, academicYear string) ([]ScoreRow, error)

	// RecordRun upserts the sync_runs row for a run.
	RecordRun(ctx context.Context, run RunRecord) error
}
