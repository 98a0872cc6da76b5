package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) Logger {
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
	return &slogLogger{Logger: slog.New(h)}
}

func TestGlobalLogger(t *testing.T) {
	Convey("Init wires the shared logger", t, func() {
		So(Init(), ShouldBeNil)
		So(Get(), ShouldNotBeNil)
		So(Named("sync"), ShouldNotBeNil)
		So(Sync(), ShouldBeNil)
	})
}

func TestFieldHelpers(t *testing.T) {
	Convey("Field constructors tag their values", t, func() {
		So(String("k", "v"), ShouldResemble, Field{Key: "k", Value: "v"})
		So(Int("n", 3), ShouldResemble, Field{Key: "n", Value: 3})
		So(Int64("n", int64(9)), ShouldResemble, Field{Key: "n", Value: int64(9)})
		So(Float64("f", 1.5), ShouldResemble, Field{Key: "f", Value: 1.5})
		So(Bool("ok", true), ShouldResemble, Field{Key: "ok", Value: true})
		So(Duration("d", time.Second), ShouldResemble, Field{Key: "d", Value: time.Second})
		So(Any("v", []int{1}), ShouldResemble, Field{Key: "v", Value: []int{1}})

		err := errors.New("boom")
		So(Error(err), ShouldResemble, Field{Key: "error", Value: err})
	})
}

func TestLogOutput(t *testing.T) {
	ctx := context.Background()

	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := newBufferLogger(&buf, slog.LevelInfo)

		Convey("Messages carry their fields and the caller location", func() {
			log.Info(ctx, "sync starting", String("stream", "assessments"), Int("page", 2))
			out := buf.String()
			So(out, ShouldContainSubstring, "sync starting")
			So(out, ShouldContainSubstring, "stream=assessments")
			So(out, ShouldContainSubstring, "page=2")
			So(out, ShouldContainSubstring, "source=")
		})

		Convey("Debug is filtered below the handler level", func() {
			log.Debug(ctx, "hidden")
			So(buf.String(), ShouldBeEmpty)
		})

		Convey("Warn and Error pass through with their levels", func() {
			log.Warn(ctx, "slow page", Duration("elapsed", 2*time.Second))
			log.Error(ctx, "flush failed", Error(errors.New("boom")))
			out := buf.String()
			So(out, ShouldContainSubstring, "level=WARN")
			So(out, ShouldContainSubstring, "level=ERROR")
			So(out, ShouldContainSubstring, "error=boom")
		})

		Convey("Named loggers group their fields", func() {
			log.Named("destination").Info(ctx, "batch flushed", Int64("rows", 40))
			So(buf.String(), ShouldContainSubstring, "destination.rows=40")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the shared handler level", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Known names adjust the level", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelDebug)
			So(SetLevelString(" WARNING "), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelWarn)
			So(SetLevelString("error"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelError)
			So(SetLevelString(""), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelInfo)
		})

		Convey("Unknown names are rejected and leave the level alone", func() {
			So(SetLevelString("info"), ShouldBeNil)
			So(SetLevelString("loud"), ShouldNotBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelInfo)
		})
	})
}
