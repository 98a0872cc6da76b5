package destination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edupulse/edusync/internal/domain/calendar"
	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/internal/domain/stats"
	"github.com/edupulse/edusync/pkg/logger"
)

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	pool  *pgxpool.Pool
	retry retryConfig
}

// NewPGStore creates a PGStore over an open pool.
func NewPGStore(pool *pgxpool.Pool, opts ...Option) *PGStore {
	s := &PGStore{
		pool: pool,
		retry: retryConfig{
			maxRetries:    defaultWriteRetries,
			retryInterval: defaultRetryInterval,
			log:           logger.Named("destination"),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const upsertEstablishmentSQL = `
	INSERT INTO establishments (id, source_id, name, uses_calendar_year, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (source_id) DO UPDATE SET
		name = EXCLUDED.name,
		uses_calendar_year = EXCLUDED.uses_calendar_year,
		updated_at = now()`

func (s *PGStore) UpsertEstablishments(ctx context.Context, rows []model.Establishment) error {
	return upsert(ctx, s.retry, "establishment", rows, func(ctx context.Context, rows []model.Establishment) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(upsertEstablishmentSQL, r.ID, r.SourceID, r.Name, r.UsesCalendarYear)
		}
		return s.sendBatch(ctx, b)
	})
}

const upsertStudentSQL = `
	INSERT INTO students (id, email, name, establishment_id, academic_year, year_group, course, faculty, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (email, academic_year) DO UPDATE SET
		name = EXCLUDED.name,
		establishment_id = EXCLUDED.establishment_id,
		year_group = EXCLUDED.year_group,
		course = EXCLUDED.course,
		faculty = EXCLUDED.faculty,
		updated_at = now()`

func (s *PGStore) UpsertStudents(ctx context.Context, rows []model.Student) error {
	return upsert(ctx, s.retry, "student", rows, func(ctx context.Context, rows []model.Student) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(upsertStudentSQL, r.ID, r.Email, r.Name, r.EstablishmentID, r.AcademicYear, r.YearGroup, r.Course, r.Faculty)
		}
		return s.sendBatch(ctx, b)
	})
}

const upsertScoreSQL = `
	INSERT INTO assessment_scores (student_id, cycle, academic_year, vision, effort, systems, practice, attitude, overall, completed_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (student_id, cycle, academic_year) DO UPDATE SET
		vision = EXCLUDED.vision,
		effort = EXCLUDED.effort,
		systems = EXCLUDED.systems,
		practice = EXCLUDED.practice,
		attitude = EXCLUDED.attitude,
		overall = EXCLUDED.overall,
		completed_at = EXCLUDED.completed_at,
		updated_at = now()`

func (s *PGStore) UpsertScores(ctx context.Context, rows []model.AssessmentScore) error {
	return upsert(ctx, s.retry, "assessment_score", rows, func(ctx context.Context, rows []model.AssessmentScore) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(upsertScoreSQL, r.StudentID, r.Cycle, r.AcademicYear, r.Vision, r.Effort, r.Systems, r.Practice, r.Attitude, r.Overall, r.CompletedAt)
		}
		return s.sendBatch(ctx, b)
	})
}

const upsertResponseSQL = `
	INSERT INTO question_responses (student_id, cycle, academic_year, question_id, value, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (student_id, cycle, academic_year, question_id) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = now()`

func (s *PGStore) UpsertResponses(ctx context.Context, rows []model.QuestionResponse) error {
	return upsert(ctx, s.retry, "question_response", rows, func(ctx context.Context, rows []model.QuestionResponse) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(upsertResponseSQL, r.StudentID, r.Cycle, r.AcademicYear, r.QuestionID, r.Value)
		}
		return s.sendBatch(ctx, b)
	})
}

const upsertCommentSQL = `
	INSERT INTO comments (student_id, cycle, comment_type, body, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (student_id, cycle, comment_type) DO UPDATE SET
		body = EXCLUDED.body,
		updated_at = now()`

func (s *PGStore) UpsertComments(ctx context.Context, rows []model.Comment) error {
	return upsert(ctx, s.retry, "comment", rows, func(ctx context.Context, rows []model.Comment) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(upsertCommentSQL, r.StudentID, r.Cycle, r.Type, r.Text)
		}
		return s.sendBatch(ctx, b)
	})
}

const upsertStatisticSQL = `
	INSERT INTO statistics (establishment_id, cycle, academic_year, element, sample_count, mean, std_dev, min, max, p25, p50, p75, histogram, low_confidence, computed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
	ON CONFLICT (establishment_id, cycle, academic_year, element) DO UPDATE SET
		sample_count = EXCLUDED.sample_count,
		mean = EXCLUDED.mean,
		std_dev = EXCLUDED.std_dev,
		min = EXCLUDED.min,
		max = EXCLUDED.max,
		p25 = EXCLUDED.p25,
		p50 = EXCLUDED.p50,
		p75 = EXCLUDED.p75,
		histogram = EXCLUDED.histogram,
		low_confidence = EXCLUDED.low_confidence,
		computed_at = now()`

func (s *PGStore) UpsertStatistics(ctx context.Context, rows []stats.Summary) error {
	return upsert(ctx, s.retry, "statistic", rows, func(ctx context.Context, rows []stats.Summary) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			hist, err := json.Marshal(r.Histogram)
			if err != nil {
				return fmt.Errorf("encode histogram: %w", err)
			}
			b.Queue(upsertStatisticSQL,
				r.Key.EstablishmentID, r.Key.Cycle, r.Key.AcademicYear, r.Key.Element,
				r.Count, r.Mean, r.StdDev, r.Min, r.Max, r.P25, r.P50, r.P75,
				hist, r.LowConfidence)
		}
		return s.sendBatch(ctx, b)
	})
}

// EstablishmentMaps preloads the establishment cross-reference maps.
func (s *PGStore) EstablishmentMaps(ctx context.Context) (map[string]string, map[string]calendar.Convention, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, source_id, uses_calendar_year FROM establishments`)
	if err != nil {
		return nil, nil, fmt.Errorf("load establishments: %w", err)
	}
	defer rows.Close()

	bySource := make(map[string]string)
	convByID := make(map[string]calendar.Convention)
	for rows.Next() {
		var id, sourceID string
		var usesCalendar bool
		if err := rows.Scan(&id, &sourceID, &usesCalendar); err != nil {
			return nil, nil, fmt.Errorf("scan establishment: %w", err)
		}
		bySource[sourceID] = id
		convByID[id] = calendar.ConventionFor(usesCalendar)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate establishments: %w", err)
	}
	return bySource, convByID, nil
}

// StudentMap preloads student ids keyed by (email, academic year).
func (s *PGStore) StudentMap(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, academic_year FROM students`)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.Email, &st.AcademicYear); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out[st.Key()] = st.ID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

// ScoreCycles returns stored cycles per student within one partition.
func (s *PGStore) ScoreCycles(ctx context.Context, academicYear string) (map[string][]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT student_id, cycle FROM assessment_scores WHERE academic_year = $1 ORDER BY student_id, cycle`,
		academicYear)
	if err != nil {
		return nil, fmt.Errorf("load score cycles: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]int)
	for rows.Next() {
		var studentID string
		var cycle int
		if err := rows.Scan(&studentID, &cycle); err != nil {
			return nil, fmt.Errorf("scan score cycle: %w", err)
		}
		out[studentID] = append(out[studentID], cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score cycles: %w", err)
	}
	return out, nil
}

// ScoreRows loads scores joined with establishments for one partition.
func (s *PGStore) ScoreRows(ctx context.Context, academicYear string) ([]ScoreRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.establishment_id, sc.cycle, sc.academic_year,
		       sc.vision, sc.effort, sc.systems, sc.practice, sc.attitude, sc.overall
		FROM assessment_scores sc
		JOIN students st ON st.id = sc.student_id
		WHERE sc.academic_year = $1`, academicYear)
	if err != nil {
		return nil, fmt.Errorf("load score rows: %w", err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.EstablishmentID, &r.Cycle, &r.AcademicYear,
			&r.Vision, &r.Effort, &r.Systems, &r.Practice, &r.Attitude, &r.Overall); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return out, nil
}

// DeleteScoreCycles removes score and response rows for the given
// cycles within one partition. Partitions not named are never touched.
func (s *PGStore) DeleteScoreCycles(ctx context.Context, academicYear, studentID string, cycles []int) (int64, error) {
	if len(cycles) == 0 {
		return 0, nil
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM question_responses WHERE student_id = $1 AND academic_year = $2 AND cycle = ANY($3)`,
		studentID, academicYear, cycles); err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM assessment_scores WHERE student_id = $1 AND academic_year = $2 AND cycle = ANY($3)`,
		studentID, academicYear, cycles)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	return tag.RowsAffected(), nil
}

const upsertRunSQL = `
	INSERT INTO sync_runs (run_id, status, dry_run, started_at, finished_at, counters, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (run_id) DO UPDATE SET
		status = EXCLUDED.status,
		finished_at = EXCLUDED.finished_at,
		counters = EXCLUDED.counters,
		error = EXCLUDED.error`

// RecordRun upserts the sync_runs summary row.
func (s *PGStore) RecordRun(ctx context.Context, run RunRecord) error {
	counters, err := json.Marshal(run.Counters)
	if err != nil {
		return fmt.Errorf("encode run counters: %w", err)
	}
	if _, err := s.pool.Exec(ctx, upsertRunSQL,
		run.RunID, run.Status, run.DryRun, run.StartedAt, run.FinishedAt, counters, run.Error); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// sendBatch executes a queued batch in one round trip.
func (s *PGStore) sendBatch(ctx context.Context, b *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
