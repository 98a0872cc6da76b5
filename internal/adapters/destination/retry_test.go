package destination

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func testRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:    2,
		retryInterval: time.Millisecond,
		log:           logger.Named("test"),
	}
}

func TestUpsertRetry(t *testing.T) {
	ctx := context.Background()
	rows := []model.Comment{
		{StudentID: "s1", Cycle: 1, Type: model.CommentReflection, Text: "a"},
		{StudentID: "s2", Cycle: 1, Type: model.CommentReflection, Text: "b"},
		{StudentID: "s3", Cycle: 1, Type: model.CommentReflection, Text: "c"},
		{StudentID: "s4", Cycle: 1, Type: model.CommentReflection, Text: "d"},
	}

	Convey("Given a batch that succeeds first try", t, func() {
		calls := 0
		err := upsert(ctx, testRetryConfig(), "comment", rows, func(_ context.Context, batch []model.Comment) error {
			calls++
			return nil
		})

		Convey("It writes the whole batch once", func() {
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
		})
	})

	Convey("Given a batch that fails transiently", t, func() {
		calls := 0
		err := upsert(ctx, testRetryConfig(), "comment", rows, func(_ context.Context, batch []model.Comment) error {
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		})

		Convey("Retries succeed without bisecting", func() {
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 3)
		})
	})

	Convey("Given one poison row in the batch", t, func() {
		var writes [][]model.Comment
		err := upsert(ctx, testRetryConfig(), "comment", rows, func(_ context.Context, batch []model.Comment) error {
			for _, r := range batch {
				if r.StudentID == "s3" {
					return errors.New("value out of range")
				}
			}
			writes = append(writes, batch)
			return nil
		})

		Convey("The other rows still land", func() {
			So(err, ShouldBeNil)
			total := 0
			for _, w := range writes {
				total += len(w)
			}
			So(total, ShouldEqual, 3)
		})

		Convey("No successful write contains the poison row", func() {
			for _, w := range writes {
				for _, r := range w {
					So(r.StudentID, ShouldNotEqual, "s3")
				}
			}
		})
	})

	Convey("Given a batch that always fails", t, func() {
		calls := 0
		err := upsert(ctx, testRetryConfig(), "comment", rows, func(_ context.Context, batch []model.Comment) error {
			calls++
			return errors.New("database on fire")
		})

		Convey("Every row is isolated and reported, run continues", func() {
			So(err, ShouldBeNil)
			So(calls, ShouldBeGreaterThan, len(rows))
		})
	})

	Convey("Given a cancelled context", t, func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := upsert(cancelled, testRetryConfig(), "comment", rows, func(cctx context.Context, batch []model.Comment) error {
			return cctx.Err()
		})

		Convey("Cancellation propagates instead of bisecting", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given an empty batch", t, func() {
		calls := 0
		err := upsert(ctx, testRetryConfig(), "comment", []model.Comment{}, func(_ context.Context, batch []model.Comment) error {
			calls++
			return nil
		})

		Convey("Nothing is written", func() {
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 0)
		})
	})
}
