package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/edupulse/edusync/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestHandleHealth(t *testing.T) {
	Convey("Given a server with no status callback", t, func() {
		s := NewServer(nil)
		rec := httptest.NewRecorder()
		s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

		Convey("It reports ok", func() {
			So(rec.Code, ShouldEqual, 200)
			var st Status
			So(json.Unmarshal(rec.Body.Bytes(), &st), ShouldBeNil)
			So(st.Status, ShouldEqual, "ok")
		})
	})

	Convey("Given a server with a status callback", t, func() {
		s := NewServer(func() Status {
			return Status{RunID: "run-1", Stage: "students_scores"}
		})
		rec := httptest.NewRecorder()
		s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

		Convey("It reports the run state with a default status", func() {
			var st Status
			So(json.Unmarshal(rec.Body.Bytes(), &st), ShouldBeNil)
			So(st.Status, ShouldEqual, "ok")
			So(st.RunID, ShouldEqual, "run-1")
			So(st.Stage, ShouldEqual, "students_scores")
		})
	})
}
