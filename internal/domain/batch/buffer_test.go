package batch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/edupulse/edusync/internal/domain/batch"
	. "github.com/smartystreets/goconvey/convey"
)

type row struct {
	K string
	V int
}

func (r row) Key() string { return r.K }

func TestBufferFlushThreshold(t *testing.T) {
	ctx := context.Background()

	Convey("Given a buffer with threshold 3", t, func() {
		var flushes [][]row
		buf := batch.New(func(_ context.Context, items []row) error {
			flushes = append(flushes, items)
			return nil
		}, batch.WithThreshold(3))

		Convey("When fewer items than the threshold are added", func() {
			So(buf.Add(ctx, row{K: "a"}), ShouldBeNil)
			So(buf.Add(ctx, row{K: "b"}), ShouldBeNil)

			Convey("Then nothing is flushed yet", func() {
				So(flushes, ShouldBeEmpty)
				So(buf.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the threshold is reached", func() {
			So(buf.Add(ctx, row{K: "a"}), ShouldBeNil)
			So(buf.Add(ctx, row{K: "b"}), ShouldBeNil)
			So(buf.Add(ctx, row{K: "c"}), ShouldBeNil)

			Convey("Then the batch is flushed and the buffer emptied", func() {
				So(flushes, ShouldHaveLength, 1)
				So(flushes[0], ShouldHaveLength, 3)
				So(buf.Len(), ShouldEqual, 0)
				So(buf.Flushed(), ShouldEqual, 3)
			})
		})

		Convey("When Flush is called on an empty buffer", func() {
			So(buf.Flush(ctx), ShouldBeNil)
			So(flushes, ShouldBeEmpty)
		})
	})
}

func TestBufferDedupe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a buffer holding duplicate natural keys", t, func() {
		var got []row
		buf := batch.New(func(_ context.Context, items []row) error {
			got = items
			return nil
		}, batch.WithThreshold(100))

		So(buf.Add(ctx, row{K: "a", V: 1}), ShouldBeNil)
		So(buf.Add(ctx, row{K: "b", V: 2}), ShouldBeNil)
		So(buf.Add(ctx, row{K: "a", V: 3}), ShouldBeNil)

		Convey("When flushed", func() {
			So(buf.Flush(ctx), ShouldBeNil)

			Convey("Then the last occurrence wins and order is stable", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0], ShouldResemble, row{K: "a", V: 3})
				So(got[1], ShouldResemble, row{K: "b", V: 2})
			})
		})
	})
}

func TestBufferFlushFailure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a flush callback that fails", t, func() {
		boom := errors.New("destination down")
		buf := batch.New(func(_ context.Context, _ []row) error {
			return boom
		}, batch.WithThreshold(100))

		So(buf.Add(ctx, row{K: "a"}), ShouldBeNil)

		Convey("When flushing", func() {
			err := buf.Flush(ctx)

			Convey("Then the error propagates and the batch stays buffered", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(buf.Len(), ShouldEqual, 1)
				So(buf.Flushed(), ShouldEqual, 0)
			})
		})
	})
}

func TestDedupe(t *testing.T) {
	Convey("Given a plain slice with duplicates", t, func() {
		in := []row{{K: "x", V: 1}, {K: "x", V: 2}, {K: "x", V: 3}}
		out := batch.Dedupe(in)
		So(out, ShouldHaveLength, 1)
		So(out[0].V, ShouldEqual, 3)
	})
}
