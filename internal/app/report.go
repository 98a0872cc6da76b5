package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Run statuses.
const (
	StatusSuccess     = "success"
	StatusPartial     = "partial"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// StageTiming records how long one stage of a run took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Report summarizes one sync run.
type Report struct {
	RunID      string
	Status     string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Counters holds fetch/upsert/delete totals and, under their
	// reason keys, skip counts.
	Counters map[string]int64

	Stages   []StageTiming
	Warnings []string
	Errors   []string
}

func newReport(runID string, dryRun bool, started time.Time) *Report {
	return &Report{
		RunID:     runID,
		Status:    StatusSuccess,
		DryRun:    dryRun,
		StartedAt: started,
		Counters:  make(map[string]int64),
	}
}

func (r *Report) count(key string, n int64) {
	r.Counters[key] += n
}

func (r *Report) addStage(stage string, d time.Duration) {
	r.Stages = append(r.Stages, StageTiming{Stage: stage, Duration: d})
}

func (r *Report) warn(msgs ...string) {
	r.Warnings = append(r.Warnings, msgs...)
}

func (r *Report) fail(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// Skips returns the skip-reason counters only.
func (r *Report) Skips() map[string]int64 {
	out := make(map[string]int64)
	for k, v := range r.Counters {
		if strings.HasPrefix(k, "skipped_") {
			out[k] = v
		}
	}
	return out
}

// Render writes a human-readable run summary.
func (r *Report) Render(w io.Writer) {
	header := color.New(color.FgCyan, color.Bold)
	mode := "live"
	if r.DryRun {
		mode = "dry-run"
	}
	_, _ = header.Fprintf(w, "\nSync run %s (%s)\n", r.RunID, mode)

	statusLine := color.GreenString
	switch r.Status {
	case StatusFailed:
		statusLine = color.RedString
	case StatusPartial, StatusInterrupted:
		statusLine = color.YellowString
	}
	fmt.Fprintln(w, statusLine("status: %s  duration: %s",
		r.Status, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))

	counters := tablewriter.NewWriter(w)
	counters.SetHeader([]string{"Counter", "Value"})
	for _, k := range sortedKeys(r.Counters) {
		counters.Append([]string{k, fmt.Sprintf("%d", r.Counters[k])})
	}
	counters.Render()

	if len(r.Stages) > 0 {
		stages := tablewriter.NewWriter(w)
		stages.SetHeader([]string{"Stage", "Duration"})
		for _, st := range r.Stages {
			stages.Append([]string{st.Stage, st.Duration.Round(time.Millisecond).String()})
		}
		stages.Render()
	}

	if len(r.Warnings) > 0 {
		color.New(color.FgYellow).Fprintf(w, "warnings (%d):\n", len(r.Warnings))
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	if len(r.Errors) > 0 {
		color.New(color.FgRed).Fprintf(w, "errors (%d):\n", len(r.Errors))
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
