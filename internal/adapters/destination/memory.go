package destination

import (
	"context"

	"github.com/edupulse/edusync/internal/domain/calendar"
	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/internal/domain/stats"
)

// MemoryStore records writes without touching the database. It backs
// dry runs: the pipeline executes end to end and the store keeps the
// rows it would have written so the report can enumerate them.
//
// Reads are seeded so a dry run can still resolve establishments and
// students; writes update the seeded maps, making a dry run internally
// consistent (a student written in one stream is visible to the next).
type MemoryStore struct {
	Establishments []model.Establishment
	Students       []model.Student
	Scores         []model.AssessmentScore
	Responses      []model.QuestionResponse
	Comments       []model.Comment
	Statistics     []stats.Summary
	Runs           []RunRecord

	deleted      []Deleted
	bySource     map[string]string
	convByID     map[string]calendar.Convention
	students     map[string]string
	estByStudent map[string]string
	cycles       map[string]map[string][]int
	cycleSource  CycleReader
}

// CycleReader reads the stored score cycles of one partition.
type CycleReader interface {
	ScoreCycles(ctx context.Context, academicYear string) (map[string][]int, error)
}

// MemoryOption applies a configuration option to a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCycleSource routes stored-cycle reads through another store,
// typically the live one, so a dry run surfaces the same prospective
// deletions a live run would perform.
func WithCycleSource(src CycleReader) MemoryOption {
	return func(m *MemoryStore) {
		m.cycleSource = src
	}
}

// NewMemoryStore creates an empty recording store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		bySource:     make(map[string]string),
		convByID:     make(map[string]calendar.Convention),
		students:     make(map[string]string),
		estByStudent: make(map[string]string),
		cycles:       make(map[string]map[string][]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed copies lookup state from another store so a dry run resolves the
// same establishments and students a live run would.
func (m *MemoryStore) Seed(bySource map[string]string, convByID map[string]calendar.Convention, students map[string]string) {
	for k, v := range bySource {
		m.bySource[k] = v
	}
	for k, v := range convByID {
		m.convByID[k] = v
	}
	for k, v := range students {
		m.students[k] = v
	}
}

// SeedCycles copies stored score cycles for one partition.
func (m *MemoryStore) SeedCycles(academicYear string, cycles map[string][]int) {
	part := make(map[string][]int, len(cycles))
	for k, v := range cycles {
		part[k] = append([]int(nil), v...)
	}
	m.cycles[academicYear] = part
}

func (m *MemoryStore) UpsertEstablishments(_ context.Context, rows []model.Establishment) error {
	m.Establishments = append(m.Establishments, rows...)
	for _, r := range rows {
		m.bySource[r.SourceID] = r.ID
		m.convByID[r.ID] = calendar.ConventionFor(r.UsesCalendarYear)
	}
	return nil
}

func (m *MemoryStore) UpsertStudents(_ context.Context, rows []model.Student) error {
	m.Students = append(m.Students, rows...)
	for _, r := range rows {
		m.students[r.Key()] = r.ID
		m.estByStudent[r.ID] = r.EstablishmentID
	}
	return nil
}

func (m *MemoryStore) UpsertScores(_ context.Context, rows []model.AssessmentScore) error {
	m.Scores = append(m.Scores, rows...)
	return nil
}

func (m *MemoryStore) UpsertResponses(_ context.Context, rows []model.QuestionResponse) error {
	m.Responses = append(m.Responses, rows...)
	return nil
}

func (m *MemoryStore) UpsertComments(_ context.Context, rows []model.Comment) error {
	m.Comments = append(m.Comments, rows...)
	return nil
}

func (m *MemoryStore) UpsertStatistics(_ context.Context, rows []stats.Summary) error {
	m.Statistics = append(m.Statistics, rows...)
	return nil
}

func (m *MemoryStore) EstablishmentMaps(_ context.Context) (map[string]string, map[string]calendar.Convention, error) {
	return m.bySource, m.convByID, nil
}

func (m *MemoryStore) StudentMap(_ context.Context) (map[string]string, error) {
	return m.students, nil
}

// ScoreRows joins recorded scores with students written this run.
// Scores of students the run never wrote have no establishment here
// and are left out.
func (m *MemoryStore) ScoreRows(_ context.Context, academicYear string) ([]ScoreRow, error) {
	var out []ScoreRow
	for _, sc := range m.Scores {
		if sc.AcademicYear != academicYear {
			continue
		}
		est, ok := m.estByStudent[sc.StudentID]
		if !ok {
			continue
		}
		out = append(out, ScoreRow{
			EstablishmentID: est,
			Cycle:           sc.Cycle,
			AcademicYear:    sc.AcademicYear,
			Vision:          sc.Vision,
			Effort:          sc.Effort,
			Systems:         sc.Systems,
			Practice:        sc.Practice,
			Attitude:        sc.Attitude,
			Overall:         sc.Overall,
		})
	}
	return out, nil
}

// ScoreCycles prefers locally seeded cycles and otherwise falls back
// to the configured cycle source.
func (m *MemoryStore) ScoreCycles(ctx context.Context, academicYear string) (map[string][]int, error) {
	if part, ok := m.cycles[academicYear]; ok {
		out := make(map[string][]int, len(part))
		for k, v := range part {
			out[k] = append([]int(nil), v...)
		}
		return out, nil
	}
	if m.cycleSource != nil {
		return m.cycleSource.ScoreCycles(ctx, academicYear)
	}
	return map[string][]int{}, nil
}

// Deleted records a deletion a dry run would have performed.
type Deleted struct {
	AcademicYear string
	StudentID    string
	Cycles       []int
}

// Deletions lists the score cycles a dry run would have removed.
func (m *MemoryStore) Deletions() []Deleted { return m.deleted }

func (m *MemoryStore) DeleteScoreCycles(_ context.Context, academicYear, studentID string, cycles []int) (int64, error) {
	if len(cycles) == 0 {
		return 0, nil
	}
	m.deleted = append(m.deleted, Deleted{
		AcademicYear: academicYear,
		StudentID:    studentID,
		Cycles:       append([]int(nil), cycles...),
	})
	return int64(len(cycles)), nil
}

func (m *MemoryStore) RecordRun(_ context.Context, run RunRecord) error {
	m.Runs = append(m.Runs, run)
	return nil
}
