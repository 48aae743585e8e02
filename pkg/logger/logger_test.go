package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("Records carry fields and the call site", func() {
			Get().Info(ctx, "scored",
				String("athlete", "a-1"),
				Float64("score", 827.08),
				Int("total", 200),
				Bool("best", true),
				Duration("took", 3*time.Millisecond))

			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["msg"], ShouldEqual, "scored")
			So(rec["athlete"], ShouldEqual, "a-1")
			So(rec["score"], ShouldEqual, 827.08)
			So(rec["best"], ShouldEqual, true)
			So(rec["source"], ShouldContainSubstring, "logger_test.go:")
		})

		Convey("Named loggers group their fields", func() {
			Named("worker").Warn(ctx, "slow", String("id", "w-1"))
			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			group, ok := rec["worker"].(map[string]any)
			So(ok, ShouldBeTrue)
			So(group["id"], ShouldEqual, "w-1")
		})

		Convey("Records below the level are dropped", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("Fatal logs then exits", func() {
			code := 0
			exit = func(c int) { code = c }
			defer func() { exit = os.Exit }()
			Get().Fatal(ctx, "boom", Error(context.Canceled))
			So(code, ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "context canceled")
		})
	})

	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithLevel("warn")), ShouldBeNil)
		Get().Info(context.Background(), "quiet")
		Get().Error(context.Background(), "loud", Any("k", []int{1}))
		So(buf.String(), ShouldNotContainSubstring, "quiet")
		So(strings.Contains(buf.String(), "msg=loud"), ShouldBeTrue)
		So(SetLevelString("info"), ShouldBeNil)
	})

	Convey("Given bad options", t, func() {
		So(Init(WithFormat("xml")), ShouldNotBeNil)
		So(Init(WithLevel("loud")), ShouldNotBeNil)
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Known levels parse", t, func() {
		for _, l := range []string{"debug", "info", "", "warn", "WARNING", "error"} {
			So(SetLevelString(l), ShouldBeNil)
		}
		So(SetLevelString("trace"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}
