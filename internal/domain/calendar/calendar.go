// Package calendar derives academic-year partitions from dates.
//
// Two institutional conventions exist: the standard Aug 1 - Jul 31 year
// and the alternate Jan 1 - Dec 31 calendar year. The resolver is a pure
// function and is total: it never returns an error for a date value.
package calendar

import (
	"context"
	"strconv"
	"time"

	"github.com/edupulse/edusync/pkg/logger"
)

// Convention selects how academic-year boundaries are drawn.
type Convention string

const (
	// Standard runs Aug 1 through Jul 31 and labels years "2025/2026".
	Standard Convention = "standard"
	// Alternate runs Jan 1 through Dec 31 and labels years "2025/2025".
	Alternate Convention = "alternate"
)

// cutoverMonth is the first month of a standard academic year. Some
// historical repair jobs used September; August is the authoritative
// majority behavior.
const cutoverMonth = time.August

// Boundary is an academic-year partition: a label plus its inclusive
// start and end dates.
type Boundary struct {
	Label string
	Start time.Time
	End   time.Time
}

// Resolve maps a reference date to its academic-year boundary under the
// given convention. The zero time is treated as unknown and falls back
// to now; this is a logged policy, not silent masking.
func Resolve(ctx context.Context, ref time.Time, conv Convention) Boundary {
	if ref.IsZero() {
		logger.Named("calendar").Warn(ctx, "unparsable reference date, falling back to now",
			logger.String("convention", string(conv)))
		ref = time.Now().UTC()
	}

	y := ref.Year()

	if conv == Alternate {
		return Boundary{
			Label: label(y, y),
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
	}

	startYear := y
	if ref.Month() < cutoverMonth {
		startYear = y - 1
	}
	return Boundary{
		Label: label(startYear, startYear+1),
		Start: time.Date(startYear, cutoverMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(startYear+1, cutoverMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1),
	}
}

// ResolveLabel is a convenience wrapper returning only the label.
func ResolveLabel(ctx context.Context, ref time.Time, conv Convention) string {
	return Resolve(ctx, ref, conv).Label
}

// ConventionFor maps an establishment flag to a Convention.
func ConventionFor(usesCalendarYear bool) Convention {
	if usesCalendarYear {
		return Alternate
	}
	return Standard
}

func label(from, to int) string {
	return strconv.Itoa(from) + "/" + strconv.Itoa(to)
}
