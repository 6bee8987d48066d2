package logging

import (
	"bytes"
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in    string
		level Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.level)
		test.That(t, level.AsZap().String(), test.ShouldEqual, tc.level.String())
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("visited", "cells", 3)
	logger.Warnw("stale", "source", "laser")
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterLevelExact(zapcore.WarnLevel).Len(), test.ShouldEqual, 1)

	logger.SetLevel(WARN)
	logger.Debugw("dropped")
	test.That(t, logs.Len(), test.ShouldEqual, 2)

	// debug mode on the context punches through the level.
	test.That(t, DebugKey(context.Background()), test.ShouldBeEmpty)
	ctx := WithDebugKey(context.Background(), "trace1")
	test.That(t, DebugKey(ctx), test.ShouldEqual, "trace1")
	logger.CDebugw(ctx, "forced")
	forced := logs.FilterMessage("forced").All()
	test.That(t, forced, test.ShouldHaveLength, 1)
	test.That(t, forced[0].ContextMap()["debug_key"], test.ShouldEqual, "trace1")

	test.That(t, DebugKey(WithDebugKey(context.Background(), "")), test.ShouldHaveLength, 6)
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("obstacle")
	sub.Infow("hello")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "obstacle")
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("costmap", INFO, &buf)
	logger.Debugw("hidden")
	logger.Infow("map updated", "cells", 12)
	test.That(t, logger.Sync(), test.ShouldBeNil)

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "hidden")
	test.That(t, out, test.ShouldContainSubstring, "INFO")
	test.That(t, out, test.ShouldContainSubstring, "costmap")
	test.That(t, out, test.ShouldContainSubstring, "map updated")
	test.That(t, out, test.ShouldContainSubstring, `"cells": 12`)
}
