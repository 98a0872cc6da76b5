package field_test

import (
	"testing"
	"time"

	"github.com/edupulse/edusync/internal/domain/field"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecode(t *testing.T) {
	Convey("Given raw source field values", t, func() {
		Convey("Nil and blank strings decode as empty", func() {
			So(field.Decode(nil).Kind, ShouldEqual, field.Empty)
			So(field.Decode("").Kind, ShouldEqual, field.Empty)
			So(field.Decode("   ").Kind, ShouldEqual, field.Empty)
		})

		Convey("Plain strings decode as scalars", func() {
			v := field.Decode("hello")
			So(v.Kind, ShouldEqual, field.Scalar)
			So(v.Text, ShouldEqual, "hello")
			So(v.HasNumber, ShouldBeFalse)
		})

		Convey("Numeric strings carry a number", func() {
			v := field.Decode("42")
			So(v.Kind, ShouldEqual, field.Scalar)
			So(v.HasNumber, ShouldBeTrue)
			So(v.Number, ShouldEqual, 42)
		})

		Convey("JSON numbers decode as scalars", func() {
			v := field.Decode(float64(7.5))
			So(v.Kind, ShouldEqual, field.Scalar)
			So(v.Number, ShouldEqual, 7.5)
		})

		Convey("Markup decodes as HTML-wrapped", func() {
			v := field.Decode(`<a href="mailto:x@y.org">x@y.org</a>`)
			So(v.Kind, ShouldEqual, field.HTMLWrapped)
		})

		Convey("An {id,...} object decodes as a connection", func() {
			v := field.Decode(map[string]any{"id": "abc123", "identifier": "Oak School"})
			So(v.Kind, ShouldEqual, field.Connection)
			So(v.Refs, ShouldHaveLength, 1)
			So(v.Refs[0].ID, ShouldEqual, "abc123")
			So(v.Refs[0].Label, ShouldEqual, "Oak School")
		})

		Convey("A list of objects decodes as a multi-ref connection", func() {
			v := field.Decode([]any{
				map[string]any{"id": "a"},
				map[string]any{"id": "b", "label": "B"},
			})
			So(v.Kind, ShouldEqual, field.Connection)
			So(v.Refs, ShouldHaveLength, 2)
			So(v.Refs[1].Label, ShouldEqual, "B")
		})

		Convey("An empty list decodes as empty", func() {
			So(field.Decode([]any{}).Kind, ShouldEqual, field.Empty)
		})
	})
}

func TestExtractEmail(t *testing.T) {
	Convey("Given email field shapes", t, func() {
		Convey("Plain addresses are lowercased", func() {
			So(field.ExtractEmail("Jane.Doe@School.ORG"), ShouldEqual, "jane.doe@school.org")
		})

		Convey("Mailto anchors are unwrapped", func() {
			raw := `<a href="mailto:jane@school.org">jane@school.org</a>`
			So(field.ExtractEmail(raw), ShouldEqual, "jane@school.org")
		})

		Convey("Email objects are unwrapped", func() {
			So(field.ExtractEmail(map[string]any{"email": "j@s.org"}), ShouldEqual, "j@s.org")
		})

		Convey("Garbage yields empty, never an error", func() {
			So(field.ExtractEmail("not an email"), ShouldEqual, "")
			So(field.ExtractEmail(nil), ShouldEqual, "")
			So(field.ExtractEmail(12.5), ShouldEqual, "")
		})
	})
}

func TestExtractConnectionID(t *testing.T) {
	Convey("Given connection field shapes", t, func() {
		Convey("Bare string ids resolve", func() {
			id, ok := field.ExtractConnectionID("rec123")
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, "rec123")
		})

		Convey("Objects resolve", func() {
			id, ok := field.ExtractConnectionID(map[string]any{"id": "rec9"})
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, "rec9")
		})

		Convey("List-wrapped objects resolve to the first id", func() {
			id, ok := field.ExtractConnectionID([]any{map[string]any{"id": "first"}, map[string]any{"id": "second"}})
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, "first")
		})

		Convey("Blank values resolve to none", func() {
			_, ok := field.ExtractConnectionID(nil)
			So(ok, ShouldBeFalse)
			_, ok = field.ExtractConnectionID("")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestExtractName(t *testing.T) {
	Convey("Given name field shapes", t, func() {
		So(field.ExtractName("Jane Doe"), ShouldEqual, "Jane Doe")
		So(field.ExtractName(map[string]any{"first": "Jane", "last": "Doe"}), ShouldEqual, "Jane Doe")
		So(field.ExtractName(map[string]any{"full": " Jane Doe "}), ShouldEqual, "Jane Doe")
		So(field.ExtractName("<b>Jane &amp; Co</b>"), ShouldEqual, "Jane & Co")
		So(field.ExtractName(nil), ShouldEqual, "")
	})
}

func TestCleanNumeric(t *testing.T) {
	Convey("Given numeric field shapes", t, func() {
		Convey("Integers parse from strings and numbers", func() {
			n, ok := field.CleanNumeric("7")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 7)

			n, ok = field.CleanNumeric(float64(3))
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 3)
		})

		Convey("Blank is none, not zero", func() {
			_, ok := field.CleanNumeric("")
			So(ok, ShouldBeFalse)
			_, ok = field.CleanNumeric(nil)
			So(ok, ShouldBeFalse)
		})

		Convey("Non-numeric is none, never a panic", func() {
			_, ok := field.CleanNumeric("seven")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestConvertDate(t *testing.T) {
	Convey("Given source date shapes", t, func() {
		Convey("Day-first dates parse", func() {
			ts, ok := field.ConvertDate("31/07/2025")
			So(ok, ShouldBeTrue)
			So(ts, ShouldEqual, time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC))
		})

		Convey("Date objects prefer the ISO timestamp", func() {
			ts, ok := field.ConvertDate(map[string]any{
				"date":          "01/08/2025",
				"iso_timestamp": "2025-08-01T09:30:00Z",
			})
			So(ok, ShouldBeTrue)
			So(ts.Hour(), ShouldEqual, 9)
		})

		Convey("Unparsable input is none", func() {
			_, ok := field.ConvertDate("soon")
			So(ok, ShouldBeFalse)
			_, ok = field.ConvertDate(nil)
			So(ok, ShouldBeFalse)
		})
	})
}
