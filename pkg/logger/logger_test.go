package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithWriter(&bytes.Buffer{}, "xml")

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("scoring").Info(ctx, "scored worker",
				String("worker", "w-1"),
				Float64("final", 7.5),
				Bool("ml", true),
			)

			Convey("Then the output carries message, component and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"scored worker"`)
				So(out, ShouldContainSubstring, `"component":"scoring"`)
				So(out, ShouldContainSubstring, `"worker":"w-1"`)
				So(out, ShouldContainSubstring, `"final":7.5`)
				So(out, ShouldContainSubstring, `"source"`)
			})
		})

		Convey("When logging an error field", func() {
			Get().With(String("op", "train")).Error(ctx, "train failed", Error(errors.New("boom")))

			Convey("Then the error and the bound field are present", func() {
				So(buf.String(), ShouldContainSubstring, "boom")
				So(buf.String(), ShouldContainSubstring, `"op":"train"`)
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")
			SetLevel(slog.LevelInfo)

			Convey("Then info lines are suppressed", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		SetLevel(slog.LevelInfo)
	})
}
