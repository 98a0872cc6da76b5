package model_test

import (
	"testing"

	"github.com/edupulse/edusync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNaturalKeys(t *testing.T) {
	Convey("Given canonical entities", t, func() {
		Convey("A student key combines lowercased email and academic year", func() {
			s := model.Student{Email: "Jane.Doe@school.org", AcademicYear: "2025/2026"}
			So(s.Key(), ShouldEqual, "jane.doe@school.org|2025/2026")
		})

		Convey("An assessment score key includes the cycle", func() {
			a := model.AssessmentScore{StudentID: "stu-1", Cycle: 2, AcademicYear: "2025/2026"}
			So(a.Key(), ShouldEqual, "stu-1|2|2025/2026")
		})

		Convey("A question response key includes the question id", func() {
			q := model.QuestionResponse{StudentID: "stu-1", Cycle: 1, AcademicYear: "2025/2026", QuestionID: "q12"}
			So(q.Key(), ShouldEqual, "stu-1|1|2025/2026|q12")
		})

		Convey("A comment key includes the comment type", func() {
			c := model.Comment{StudentID: "stu-1", Cycle: 3, Type: model.CommentGoal}
			So(c.Key(), ShouldEqual, "stu-1|3|goal")
		})
	})
}

func TestAssessmentScoreHasData(t *testing.T) {
	Convey("Given an assessment score", t, func() {
		Convey("All-null scores have no data", func() {
			So(model.AssessmentScore{}.HasData(), ShouldBeFalse)
		})

		Convey("A single dimension counts as data", func() {
			v := 7
			So(model.AssessmentScore{Effort: &v}.HasData(), ShouldBeTrue)
		})

		Convey("An overall score alone counts as data", func() {
			o := 6.5
			So(model.AssessmentScore{Overall: &o}.HasData(), ShouldBeTrue)
		})
	})
}

func TestScaleValidation(t *testing.T) {
	Convey("Given the assessment scales", t, func() {
		Convey("Responses must lie within 1..5", func() {
			So(model.ValidResponse(0), ShouldBeFalse)
			So(model.ValidResponse(1), ShouldBeTrue)
			So(model.ValidResponse(5), ShouldBeTrue)
			So(model.ValidResponse(6), ShouldBeFalse)
		})

		Convey("Overall scores must lie within 0..10", func() {
			So(model.ValidOverall(-0.1), ShouldBeFalse)
			So(model.ValidOverall(0), ShouldBeTrue)
			So(model.ValidOverall(10), ShouldBeTrue)
			So(model.ValidOverall(10.5), ShouldBeFalse)
		})

		Convey("Cycles must be 1..3", func() {
			So(model.ValidCycle(0), ShouldBeFalse)
			So(model.ValidCycle(2), ShouldBeTrue)
			So(model.ValidCycle(4), ShouldBeFalse)
		})
	})
}
