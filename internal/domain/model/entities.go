// Package model contains the canonical entities produced by the sync
// pipeline and the natural keys used as upsert conflict targets.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Assessment cycles repeat up to three times per academic year.
const (
	MinCycle = 1
	MaxCycle = 3
)

// Bounds of the assessment scales.
const (
	// Dimension and overall scores live on a 0..10 scale.
	MinScore = 0
	MaxScore = 10

	// Question responses use a 1..5 discrete scale.
	MinResponse = 1
	MaxResponse = 5
)

// Comment types stored per student and cycle.
const (
	CommentReflection = "reflection"
	CommentGoal       = "goal"
)

// Establishment is an institution resolved from the source.
type Establishment struct {
	ID       string // destination id
	SourceID string // opaque source record id
	Name     string

	// UsesCalendarYear selects the alternate Jan-Dec academic year
	// convention instead of the standard Aug-Jul one.
	UsesCalendarYear bool
}

// Key returns the natural key of the establishment.
func (e Establishment) Key() string { return e.SourceID }

// Student is one learner within one academic-year partition. A
// re-enrollment in a later partition is a distinct Student sharing the
// email.
type Student struct {
	ID              string // destination id, stable across runs
	Email           string // normalized lowercase
	Name            string
	EstablishmentID string
	AcademicYear    string
	YearGroup       string
	Course          string
	Faculty         string
}

// Key returns the natural key (email, academic year).
func (s Student) Key() string {
	return strings.ToLower(s.Email) + "|" + s.AcademicYear
}

// AssessmentScore holds the five dimension scores plus the overall
// score for one cycle. A cycle with all six values null is never
// persisted.
type AssessmentScore struct {
	StudentID    string
	Cycle        int
	AcademicYear string

	Vision   *int
	Effort   *int
	Systems  *int
	Practice *int
	Attitude *int
	Overall  *float64

	CompletedAt *time.Time
}

// Key returns the natural key (student, cycle, academic year).
func (a AssessmentScore) Key() string {
	return fmt.Sprintf("%s|%d|%s", a.StudentID, a.Cycle, a.AcademicYear)
}

// HasData reports whether at least one of the six values is present.
func (a AssessmentScore) HasData() bool {
	return a.Vision != nil || a.Effort != nil || a.Systems != nil ||
		a.Practice != nil || a.Attitude != nil || a.Overall != nil
}

// QuestionResponse is a single in-range answer to one questionnaire
// question in one cycle.
type QuestionResponse struct {
	StudentID    string
	Cycle        int
	AcademicYear string
	QuestionID   string
	Value        int
}

// Key returns the natural key (student, cycle, academic year, question).
func (q QuestionResponse) Key() string {
	return fmt.Sprintf("%s|%d|%s|%s", q.StudentID, q.Cycle, q.AcademicYear, q.QuestionID)
}

// Comment is a free-text note attached to a student and cycle.
type Comment struct {
	StudentID string
	Cycle     int
	Type      string
	Text      string
}

// Key returns the natural key (student, cycle, type).
func (c Comment) Key() string {
	return fmt.Sprintf("%s|%d|%s", c.StudentID, c.Cycle, c.Type)
}

// ValidResponse reports whether v is within the discrete response scale.
// Zero and out-of-range values are business-rule drops, not errors.
func ValidResponse(v int) bool {
	return v >= MinResponse && v <= MaxResponse
}

// ValidOverall reports whether an overall score lies within the scale.
func ValidOverall(v float64) bool {
	return v >= MinScore && v <= MaxScore
}

// ValidCycle reports whether c is a known assessment cycle.
func ValidCycle(c int) bool {
	return c >= MinCycle && c <= MaxCycle
}
