package observation

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/costmap/logging"
)

func encodePCD(t *testing.T, points []r3.Vector) []byte {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n")
	fmt.Fprintf(&buf, "WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA binary\n", len(points), len(points))
	for _, p := range points {
		test.That(t, binary.Write(&buf, binary.LittleEndian, [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}), test.ShouldBeNil)
	}
	return buf.Bytes()
}

func TestReadPCD(t *testing.T) {
	want := []r3.Vector{{X: 1, Y: 2, Z: 0.5}, {X: -1.5, Y: 0.25, Z: 1}}
	points, err := ReadPCD(bytes.NewReader(encodePCD(t, want)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldResemble, want)

	_, err = ReadPCD(bytes.NewReader([]byte("garbage")))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPCDSourceReplays(t *testing.T) {
	logger := logging.NewTestLogger(t)
	origin := r3.Vector{X: 0.5, Z: 0.3}
	src, err := NewPCDSource("map", bytes.NewReader(encodePCD(t, []r3.Vector{{X: 1}})), origin, time.Millisecond, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.DataType(), test.ShouldEqual, DataTypePCD)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r, err := src.NextReading(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r.Origin, test.ShouldResemble, origin)
		test.That(t, r.Points, test.ShouldHaveLength, 1)
	}

	test.That(t, src.Close(ctx), test.ShouldBeNil)
	_, err = src.NextReading(ctx)
	test.That(t, err, test.ShouldBeError, ErrSourceClosed)
}

func TestPCDSourceCloseUnblocksReader(t *testing.T) {
	logger := logging.NewTestLogger(t)
	src, err := NewPCDSource("map", bytes.NewReader(encodePCD(t, nil)), r3.Vector{}, time.Hour, logger)
	test.That(t, err, test.ShouldBeNil)

	ctx := context.Background()
	_, err = src.NextReading(ctx)
	test.That(t, err, test.ShouldBeNil)

	errs := make(chan error, 1)
	go func() {
		_, err := src.NextReading(ctx)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	test.That(t, src.Close(ctx), test.ShouldBeNil)
	test.That(t, <-errs, test.ShouldBeError, ErrSourceClosed)
}

func TestPCDFromAttributes(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "cloud.pcd")
	test.That(t, os.WriteFile(path, encodePCD(t, []r3.Vector{{X: 1}, {X: 2}}), 0o600), test.ShouldBeNil)

	src, err := NewSource(context.Background(), "map", DataTypePCD, map[string]interface{}{
		"path":   path,
		"origin": []interface{}{1.0, 2.0, 0.0},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	r, err := src.NextReading(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Origin, test.ShouldResemble, r3.Vector{X: 1, Y: 2})
	test.That(t, r.Points, test.ShouldHaveLength, 2)

	_, err = NewSource(context.Background(), "map", DataTypePCD, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "path")

	_, err = NewSource(context.Background(), "map", DataTypePCD, map[string]interface{}{
		"path":   path,
		"origin": []interface{}{1.0},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
