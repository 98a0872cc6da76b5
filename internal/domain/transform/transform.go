// Package transform maps raw source records into canonical entities.
//
// Skip-vs-error is a typed decision here: a Result either carries
// entities or names the reason the record was set aside. Errors are
// reserved for conditions the caller cannot count and continue past.
package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/edusync/internal/domain/calendar"
	"github.com/edupulse/edusync/internal/domain/field"
	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/pkg/logger"
)

// SkipReason classifies why a whole record produced no entities.
type SkipReason string

const (
	// SkipNone marks a record that produced entities.
	SkipNone SkipReason = ""
	// SkipNoEmail marks a record with no resolvable email address.
	SkipNoEmail SkipReason = "skipped_no_email"
	// SkipNoDate marks a record lacking the completion date needed for
	// partition assignment.
	SkipNoDate SkipReason = "skipped_no_date"
	// SkipNoEstablishment marks a record whose institution reference
	// cannot be resolved at all.
	SkipNoEstablishment SkipReason = "skipped_no_establishment"
	// SkipNotYetMigrated marks a record referencing a student the
	// destination does not hold yet; it self-heals on a later pass.
	SkipNotYetMigrated SkipReason = "skipped_not_yet_migrated"
)

// Result is the outcome of transforming one source record.
type Result struct {
	Skip     SkipReason
	Warnings []string

	Student   *model.Student
	Scores    []model.AssessmentScore
	Responses []model.QuestionResponse
	Comments  []model.Comment

	AcademicYear string
}

// Skipped reports whether the record produced no entities.
func (r Result) Skipped() bool { return r.Skip != SkipNone }

// Record is the minimal source-record view the transformer needs.
type Record struct {
	ID     string
	Fields map[string]any
}

// Transformer converts records of every stream. It carries the
// preloaded cross-reference maps and accumulates the per-student
// present-cycle sets the reconciler consumes after the pass.
type Transformer struct {
	fields Fields

	// establishment destination id by source record id
	estBySource map[string]string
	// calendar convention by establishment destination id
	convByEst map[string]calendar.Convention
	// student destination id by natural key (email|year)
	studentByKey map[string]string

	// cycles seen in the source this pass, by student id
	presentCycles map[string]map[int]bool

	log logger.Logger
}

// New creates a Transformer with the given field mappings and
// preloaded id maps. The maps are owned by the caller and mutated as
// new students and establishments are registered.
func New(fields Fields, estBySource map[string]string, convByEst map[string]calendar.Convention, studentByKey map[string]string) *Transformer {
	return &Transformer{
		fields:        fields,
		estBySource:   estBySource,
		convByEst:     convByEst,
		studentByKey:  studentByKey,
		presentCycles: make(map[string]map[int]bool),
		log:           logger.Named("transform"),
	}
}

// Establishment transforms one establishment record.
func (t *Transformer) Establishment(_ context.Context, rec Record) model.Establishment {
	f := t.fields.Establishment
	usesCalendar := false
	if v, ok := field.CleanNumeric(rec.Fields[f.CalendarYear]); ok {
		usesCalendar = v != 0
	} else if s, ok := rec.Fields[f.CalendarYear].(string); ok {
		usesCalendar = strings.EqualFold(strings.TrimSpace(s), "yes") || strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return model.Establishment{
		SourceID:         rec.ID,
		Name:             field.ExtractName(rec.Fields[f.Name]),
		UsesCalendarYear: usesCalendar,
	}
}

// RegisterEstablishment records a synced establishment in the
// cross-reference maps so later streams can resolve it.
func (t *Transformer) RegisterEstablishment(e model.Establishment) {
	t.estBySource[e.SourceID] = e.ID
	t.convByEst[e.ID] = calendar.ConventionFor(e.UsesCalendarYear)
}

// Assessment transforms one student-and-scores record into a Student
// plus zero or more per-cycle AssessmentScores.
func (t *Transformer) Assessment(ctx context.Context, rec Record) Result {
	f := t.fields.Assessment

	email := field.ExtractEmail(rec.Fields[f.Email])
	if email == "" {
		return Result{Skip: SkipNoEmail}
	}

	estSourceID, ok := field.ExtractConnectionID(rec.Fields[f.Establishment])
	if !ok {
		return Result{Skip: SkipNoEstablishment}
	}
	estID, ok := t.estBySource[estSourceID]
	if !ok {
		// distinct from a missing reference: the establishment exists in
		// the source but has not been migrated yet
		return Result{Skip: SkipNotYetMigrated}
	}

	completedAt, ok := field.ConvertDate(rec.Fields[f.CompletedAt])
	if !ok {
		// partition correctness over recall: an undated record cannot be
		// assigned to an academic year
		return Result{Skip: SkipNoDate}
	}

	conv := t.convByEst[estID]
	if conv == "" {
		conv = calendar.Standard
	}
	year := calendar.ResolveLabel(ctx, completedAt, conv)

	student := model.Student{
		Email:           email,
		Name:            field.ExtractName(rec.Fields[f.Name]),
		EstablishmentID: estID,
		AcademicYear:    year,
		YearGroup:       field.ExtractName(rec.Fields[f.YearGroup]),
		Course:          field.ExtractName(rec.Fields[f.Course]),
		Faculty:         field.ExtractName(rec.Fields[f.Faculty]),
	}
	student.ID = t.resolveStudentID(student.Key())

	res := Result{Student: &student, AcademicYear: year}

	for i, cf := range f.Cycles {
		cycle := i + 1
		score := model.AssessmentScore{
			StudentID:    student.ID,
			Cycle:        cycle,
			AcademicYear: year,
			Vision:       intField(rec.Fields[cf.Vision]),
			Effort:       intField(rec.Fields[cf.Effort]),
			Systems:      intField(rec.Fields[cf.Systems]),
			Practice:     intField(rec.Fields[cf.Practice]),
			Attitude:     intField(rec.Fields[cf.Attitude]),
			CompletedAt:  timePtr(completedAt),
		}
		if o, ok := field.CleanFloat(rec.Fields[cf.Overall]); ok {
			if model.ValidOverall(o) {
				score.Overall = &o
			} else {
				warn := fmt.Sprintf("record %s cycle %d: overall %.2f outside scale, dropped", rec.ID, cycle, o)
				res.Warnings = append(res.Warnings, warn)
				t.log.Warn(ctx, "overall score outside scale",
					logger.String("record", rec.ID),
					logger.Int("cycle", cycle),
					logger.Float64("overall", o))
			}
		}
		if !score.HasData() {
			continue // cycle has no data; nothing to persist
		}
		res.Scores = append(res.Scores, score)
		t.markCyclePresent(student.ID, cycle)
	}

	return res
}

// Responses transforms one question-response record into per-question,
// per-cycle rows. Out-of-range and zero values are dropped silently;
// that is the business rule, not an error.
func (t *Transformer) Responses(ctx context.Context, rec Record) Result {
	f := t.fields.Response

	email := field.ExtractEmail(rec.Fields[f.Email])
	if email == "" {
		return Result{Skip: SkipNoEmail}
	}
	completedAt, ok := field.ConvertDate(rec.Fields[f.CompletedAt])
	if !ok {
		return Result{Skip: SkipNoDate}
	}

	studentID, year, ok := t.lookupStudent(ctx, email, completedAt)
	if !ok {
		return Result{Skip: SkipNotYetMigrated}
	}

	res := Result{AcademicYear: year}
	for _, q := range f.Questions {
		for i, fieldID := range q.Cycles {
			if fieldID == "" {
				continue
			}
			v, ok := field.CleanNumeric(rec.Fields[fieldID])
			if !ok || !model.ValidResponse(v) {
				continue
			}
			res.Responses = append(res.Responses, model.QuestionResponse{
				StudentID:    studentID,
				Cycle:        i + 1,
				AcademicYear: year,
				QuestionID:   q.ID,
				Value:        v,
			})
		}
	}
	return res
}

// Comments transforms one comment record.
func (t *Transformer) Comments(ctx context.Context, rec Record) Result {
	f := t.fields.Comment

	email := field.ExtractEmail(rec.Fields[f.Email])
	if email == "" {
		return Result{Skip: SkipNoEmail}
	}
	date, ok := field.ConvertDate(rec.Fields[f.Date])
	if !ok {
		return Result{Skip: SkipNoDate}
	}
	cycle, ok := field.CleanNumeric(rec.Fields[f.Cycle])
	if !ok || !model.ValidCycle(cycle) {
		return Result{Skip: SkipNoDate}
	}

	studentID, year, ok := t.lookupStudent(ctx, email, date)
	if !ok {
		return Result{Skip: SkipNotYetMigrated}
	}

	res := Result{AcademicYear: year}
	kinds := []struct {
		commentType string
		fieldID     string
	}{
		{model.CommentReflection, f.Reflection},
		{model.CommentGoal, f.Goal},
	}
	for _, k := range kinds {
		text := field.ExtractName(rec.Fields[k.fieldID])
		if text == "" {
			continue
		}
		res.Comments = append(res.Comments, model.Comment{
			StudentID: studentID,
			Cycle:     cycle,
			Type:      k.commentType,
			Text:      text,
		})
	}
	return res
}

// PresentCycles returns the cycles observed in the source this pass,
// per student id. The reconciler deletes destination cycles absent from
// these sets within the synced partition.
func (t *Transformer) PresentCycles() map[string][]int {
	out := make(map[string][]int, len(t.presentCycles))
	for studentID, cycles := range t.presentCycles {
		for c := model.MinCycle; c <= model.MaxCycle; c++ {
			if cycles[c] {
				out[studentID] = append(out[studentID], c)
			}
		}
	}
	return out
}

// resolveStudentID returns the destination id for a student key,
// minting a new id for students not seen before. An upsert keeps the
// destination's existing id on conflict, so minted ids only survive
// for genuinely new students.
func (t *Transformer) resolveStudentID(key string) string {
	if id, ok := t.studentByKey[key]; ok {
		return id
	}
	id := uuid.NewString()
	t.studentByKey[key] = id
	return id
}

// lookupStudent resolves a student by email and reference date, trying
// every convention-dependent year label the date could map to.
func (t *Transformer) lookupStudent(ctx context.Context, email string, ref time.Time) (id, year string, ok bool) {
	for _, conv := range []calendar.Convention{calendar.Standard, calendar.Alternate} {
		y := calendar.ResolveLabel(ctx, ref, conv)
		if sid, found := t.studentByKey[strings.ToLower(email)+"|"+y]; found {
			return sid, y, true
		}
	}
	return "", "", false
}

func (t *Transformer) markCyclePresent(studentID string, cycle int) {
	if t.presentCycles[studentID] == nil {
		t.presentCycles[studentID] = make(map[int]bool, model.MaxCycle)
	}
	t.presentCycles[studentID][cycle] = true
}

func intField(raw any) *int {
	if v, ok := field.CleanNumeric(raw); ok {
		return &v
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
