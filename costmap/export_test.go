package costmap

import (
	"bytes"
	"testing"

	"go.viam.com/test"
	"gopkg.in/yaml.v3"
)

func TestSaveMap(t *testing.T) {
	g := NewGrid(3, 2, 0.5, 0, 0, FreeSpace)
	for i := range g.CharMap() {
		g.CharMap()[i] = uint8(i)
	}

	var buf bytes.Buffer
	test.That(t, g.SaveMap(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "P2\n3\n2\n255\n0 1 2\n3 4 5\n")

	cm := FromGrid(g)
	buf.Reset()
	test.That(t, cm.SaveMap(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "P2\n3\n2\n255\n0 1 2\n3 4 5\n")
}

func TestSaveMapEmptyRows(t *testing.T) {
	g := NewGrid(2, 2, 1, 0, 0, NoInformation)
	var buf bytes.Buffer
	test.That(t, g.SaveMap(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, "P2\n2\n2\n255\n255 255\n255 255\n")
}

func TestSaveMapMetadata(t *testing.T) {
	g := NewGrid(40, 30, 0.05, -1, 2.5, NoInformation)

	var buf bytes.Buffer
	test.That(t, g.SaveMapMetadata(&buf, "map.pgm"), test.ShouldBeNil)

	var md MapMetadata
	test.That(t, yaml.Unmarshal(buf.Bytes(), &md), test.ShouldBeNil)
	test.That(t, md.Image, test.ShouldEqual, "map.pgm")
	test.That(t, md.Resolution, test.ShouldEqual, 0.05)
	test.That(t, md.Origin, test.ShouldResemble, []float64{-1, 2.5, 0})
	test.That(t, md.Width, test.ShouldEqual, 40)
	test.That(t, md.Height, test.ShouldEqual, 30)
	test.That(t, md.SnapshotID, test.ShouldNotBeEmpty)
	test.That(t, g.Metadata("map.pgm").SnapshotID, test.ShouldNotEqual, md.SnapshotID)
}
