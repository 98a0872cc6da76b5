package stats_test

import (
	"testing"

	"github.com/edupulse/edusync/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKnownDistribution(t *testing.T) {
	Convey("Given the values [2,4,4,4,5,5,7,9]", t, func() {
		key := stats.GroupKey{EstablishmentID: "est-1", Cycle: 1, AcademicYear: "2025/2026", Element: "vision"}
		agg := stats.New()
		for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
			agg.Add(key, v)
		}

		Convey("When summarized", func() {
			summaries := agg.Summaries()
			So(summaries, ShouldHaveLength, 1)
			s := summaries[0]

			Convey("Then the classic results hold", func() {
				So(s.Count, ShouldEqual, 8)
				So(s.Mean, ShouldEqual, 5.0)
				So(s.StdDev, ShouldEqual, 2.0)
				So(s.P50, ShouldEqual, 4.5)
				So(s.Min, ShouldEqual, 2)
				So(s.Max, ShouldEqual, 9)
			})

			Convey("And the histogram counts each discrete value", func() {
				So(s.Histogram[4], ShouldEqual, 3)
				So(s.Histogram[5], ShouldEqual, 2)
				So(s.Histogram[2], ShouldEqual, 1)
				So(s.Histogram[7], ShouldEqual, 1)
				So(s.Histogram[9], ShouldEqual, 1)
			})
		})
	})
}

func TestPercentileInterpolation(t *testing.T) {
	Convey("Given the values [1,2,3,4]", t, func() {
		key := stats.GroupKey{Element: "effort"}
		agg := stats.New()
		for _, v := range []float64{1, 2, 3, 4} {
			agg.Add(key, v)
		}
		s := agg.Summaries()[0]

		Convey("Percentiles interpolate linearly between ranks", func() {
			So(s.P25, ShouldEqual, 1.75)
			So(s.P50, ShouldEqual, 2.5)
			So(s.P75, ShouldEqual, 3.25)
		})
	})
}

func TestLowConfidenceFlag(t *testing.T) {
	Convey("Given a minimum sample size of 3", t, func() {
		agg := stats.New(stats.WithMinSampleSize(3))
		small := stats.GroupKey{Element: "q1"}
		large := stats.GroupKey{Element: "q2"}

		agg.Add(small, 4)
		for i := 0; i < 3; i++ {
			agg.Add(large, 5)
		}

		Convey("Small groups are still computed but flagged", func() {
			summaries := agg.Summaries()
			So(summaries, ShouldHaveLength, 2)
			byElement := map[string]stats.Summary{}
			for _, s := range summaries {
				byElement[s.Key.Element] = s
			}
			So(byElement["q1"].LowConfidence, ShouldBeTrue)
			So(byElement["q1"].Count, ShouldEqual, 1)
			So(byElement["q2"].LowConfidence, ShouldBeFalse)
		})
	})
}

func TestSingleValueGroup(t *testing.T) {
	Convey("Given a group with a single value", t, func() {
		agg := stats.New()
		agg.Add(stats.GroupKey{Element: "overall"}, 6)
		s := agg.Summaries()[0]

		Convey("All statistics collapse to that value", func() {
			So(s.Mean, ShouldEqual, 6)
			So(s.StdDev, ShouldEqual, 0)
			So(s.P25, ShouldEqual, 6)
			So(s.P50, ShouldEqual, 6)
			So(s.P75, ShouldEqual, 6)
		})
	})
}

func TestDeterministicOrder(t *testing.T) {
	Convey("Given multiple groups", t, func() {
		agg := stats.New()
		agg.Add(stats.GroupKey{EstablishmentID: "b", Cycle: 1, Element: "x"}, 1)
		agg.Add(stats.GroupKey{EstablishmentID: "a", Cycle: 2, Element: "y"}, 1)
		agg.Add(stats.GroupKey{EstablishmentID: "a", Cycle: 1, Element: "z"}, 1)

		Convey("Summaries sort by establishment, year, cycle, element", func() {
			s := agg.Summaries()
			So(s[0].Key.EstablishmentID, ShouldEqual, "a")
			So(s[0].Key.Cycle, ShouldEqual, 1)
			So(s[1].Key.Cycle, ShouldEqual, 2)
			So(s[2].Key.EstablishmentID, ShouldEqual, "b")
		})
	})
}
