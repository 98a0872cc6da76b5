package checkpoint_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edupulse/edusync/internal/adapters/checkpoint"
	"github.com/edupulse/edusync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()

	Convey("Given no checkpoint file", t, func() {
		store := checkpoint.NewStore(filepath.Join(t.TempDir(), "cp.json"))

		Convey("Load returns nothing without error", func() {
			cp, err := store.Load(ctx)
			So(err, ShouldBeNil)
			So(cp, ShouldBeNil)
		})
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given a checkpoint with progress", t, func() {
		path := filepath.Join(t.TempDir(), "cp.json")
		store := checkpoint.NewStore(path)

		cp := checkpoint.New("run-1", time.Now().UTC())
		cp.Advance("assessments", 7)
		cp.MarkDone("establishments")
		cp.ProcessedKeys["assessments"] = []string{"k1", "k2"}
		cp.Counters["synced"] = 123

		Convey("When saved and reloaded", func() {
			So(store.Save(ctx, cp), ShouldBeNil)
			loaded, err := store.Load(ctx)

			Convey("Then every field survives", func() {
				So(err, ShouldBeNil)
				So(loaded, ShouldNotBeNil)
				So(loaded.RunID, ShouldEqual, "run-1")
				So(loaded.Cursor("assessments").NextPage, ShouldEqual, 7)
				So(loaded.Done("establishments"), ShouldBeTrue)
				So(loaded.Done("assessments"), ShouldBeFalse)
				So(loaded.ProcessedKeys["assessments"], ShouldResemble, []string{"k1", "k2"})
				So(loaded.Counters["synced"], ShouldEqual, 123)
			})

			Convey("And unseen streams start at page 1", func() {
				So(loaded.Cursor("comments").NextPage, ShouldEqual, 1)
			})
		})

		Convey("When cleared", func() {
			So(store.Save(ctx, cp), ShouldBeNil)
			So(store.Clear(ctx), ShouldBeNil)

			cp2, err := store.Load(ctx)
			So(err, ShouldBeNil)
			So(cp2, ShouldBeNil)

			Convey("Clearing again is harmless", func() {
				So(store.Clear(ctx), ShouldBeNil)
			})
		})
	})
}

func TestVersionMismatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a checkpoint from a different schema version", t, func() {
		path := filepath.Join(t.TempDir(), "cp.json")
		So(os.WriteFile(path, []byte(`{"version": 99, "run_id": "old"}`), 0o644), ShouldBeNil)
		store := checkpoint.NewStore(path)

		Convey("Load fails loudly", func() {
			_, err := store.Load(ctx)
			So(errors.Is(err, checkpoint.ErrVersionMismatch), ShouldBeTrue)
		})
	})

	Convey("Given an unreadable blob", t, func() {
		path := filepath.Join(t.TempDir(), "cp.json")
		So(os.WriteFile(path, []byte(`{not json`), 0o644), ShouldBeNil)
		store := checkpoint.NewStore(path)

		Convey("Load reports corruption", func() {
			_, err := store.Load(ctx)
			So(errors.Is(err, checkpoint.ErrCorrupt), ShouldBeTrue)
		})
	})
}
