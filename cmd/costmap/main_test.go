package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
	"gopkg.in/yaml.v3"

	"go.viam.com/costmap/costmap"
	"go.viam.com/costmap/navigator"
	"go.viam.com/costmap/wavefront"
)

func TestMapAndPlan(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "costmap.yaml")
	cfg := "costmap: {size_x: 8, size_y: 6, resolution: 0.5}\n"
	test.That(t, os.WriteFile(cfgPath, []byte(cfg), 0o600), test.ShouldBeNil)
	outDir := filepath.Join(dir, "out")
	logPath := filepath.Join(dir, "costmap.log")
	global := []string{"costmap", "--config", cfgPath, "--out", outDir, "--log-file", logPath, "--x", "0.2", "--y", "0.2"}

	app := newApp()
	test.That(t, app.Run(append(global, "map")), test.ShouldBeNil)

	pgm, err := os.ReadFile(filepath.Join(outDir, "costmap.pgm"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.HasPrefix(string(pgm), "P2\n8\n6\n255\n0 0 0 0 0 0 0 0\n"), test.ShouldBeTrue)

	rawMeta, err := os.ReadFile(filepath.Join(outDir, "costmap.yaml"))
	test.That(t, err, test.ShouldBeNil)
	var meta costmap.MapMetadata
	test.That(t, yaml.Unmarshal(rawMeta, &meta), test.ShouldBeNil)
	test.That(t, meta.Image, test.ShouldEqual, "costmap.pgm")
	test.That(t, meta.Resolution, test.ShouldEqual, 0.5)
	test.That(t, meta.Width, test.ShouldEqual, 8)
	test.That(t, meta.Height, test.ShouldEqual, 6)

	var stdout bytes.Buffer
	app = newApp()
	app.Writer = &stdout
	test.That(t, app.Run(append(global, "plan", "--goal-x", "3.7", "--goal-y", "2.7")), test.ShouldBeNil)
	png, err := os.ReadFile(filepath.Join(outDir, "potential.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(png[:4]), test.ShouldEqual, "\x89PNG")
	test.That(t, strings.ToLower(stdout.String()), test.ShouldContainSubstring, "widest tier")

	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "saved costmap")
	test.That(t, string(logs), test.ShouldContainSubstring, "saved potential")
	test.That(t, string(logs), test.ShouldNotContainSubstring, "wavefront expansion finished")

	app = newApp()
	app.Writer = &stdout
	test.That(t, app.Run(append(global, "--debug-key", "run42", "plan", "--goal-x", "3.7", "--goal-y", "2.7")), test.ShouldBeNil)
	logs, err = os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "wavefront expansion finished")
	test.That(t, string(logs), test.ShouldContainSubstring, "run42")

	app = newApp()
	err = app.Run(append(global, "plan", "--goal-x", "30", "--goal-y", "2.7"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "outside the map")
}

func TestPotentialTable(t *testing.T) {
	out := potentialTable(navigator.Potential{
		Reached: true,
		Field:   []float32{0, 50, 100, wavefront.PotHigh},
		Stats:   wavefront.Stats{Cycles: 3, CellsVisited: 3, CellsQueued: 3, WidestTier: 2, Reached: true},
	})
	lower := strings.ToLower(out)
	test.That(t, lower, test.ShouldContainSubstring, "cells reached")
	test.That(t, lower, test.ShouldContainSubstring, "true")
	test.That(t, out, test.ShouldContainSubstring, "100.0")
	test.That(t, out, test.ShouldContainSubstring, "50.0")
}
