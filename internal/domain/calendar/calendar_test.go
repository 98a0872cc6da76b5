package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/edusync/internal/domain/calendar"
	"github.com/edupulse/edusync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveStandard(t *testing.T) {
	ctx := context.Background()

	Convey("Given the standard Aug-Jul convention", t, func() {
		Convey("Jul 31 belongs to the previous academic year", func() {
			b := calendar.Resolve(ctx, date(2025, time.July, 31), calendar.Standard)
			So(b.Label, ShouldEqual, "2024/2025")
			So(b.Start, ShouldEqual, date(2024, time.August, 1))
			So(b.End, ShouldEqual, date(2025, time.July, 31))
		})

		Convey("Aug 1 starts the next academic year", func() {
			b := calendar.Resolve(ctx, date(2025, time.August, 1), calendar.Standard)
			So(b.Label, ShouldEqual, "2025/2026")
			So(b.Start, ShouldEqual, date(2025, time.August, 1))
			So(b.End, ShouldEqual, date(2026, time.July, 31))
		})

		Convey("Mid-year dates map to the spanning label", func() {
			So(calendar.ResolveLabel(ctx, date(2026, time.January, 15), calendar.Standard), ShouldEqual, "2025/2026")
			So(calendar.ResolveLabel(ctx, date(2025, time.December, 1), calendar.Standard), ShouldEqual, "2025/2026")
		})
	})
}

func TestResolveAlternate(t *testing.T) {
	ctx := context.Background()

	Convey("Given the alternate calendar-year convention", t, func() {
		Convey("Jan 1 and Dec 31 map to the same label", func() {
			So(calendar.ResolveLabel(ctx, date(2025, time.January, 1), calendar.Alternate), ShouldEqual, "2025/2025")
			So(calendar.ResolveLabel(ctx, date(2025, time.December, 31), calendar.Alternate), ShouldEqual, "2025/2025")
		})

		Convey("Boundaries span the full calendar year", func() {
			b := calendar.Resolve(ctx, date(2025, time.June, 10), calendar.Alternate)
			So(b.Start, ShouldEqual, date(2025, time.January, 1))
			So(b.End, ShouldEqual, date(2025, time.December, 31))
		})
	})
}

func TestResolveTotality(t *testing.T) {
	ctx := context.Background()

	Convey("Given a zero (unparsable) reference date", t, func() {
		Convey("The resolver falls back to now instead of failing", func() {
			b := calendar.Resolve(ctx, time.Time{}, calendar.Standard)
			So(b.Label, ShouldNotBeEmpty)
			now := time.Now().UTC()
			So(now.After(b.Start) || now.Equal(b.Start), ShouldBeTrue)
			So(now.Before(b.End.AddDate(0, 0, 1)), ShouldBeTrue)
		})
	})
}

func TestConventionFor(t *testing.T) {
	Convey("Given an establishment calendar flag", t, func() {
		So(calendar.ConventionFor(false), ShouldEqual, calendar.Standard)
		So(calendar.ConventionFor(true), ShouldEqual, calendar.Alternate)
	})
}
