package costmap

import (
	"io"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestCopyWindow(t *testing.T) {
	src := FromGrid(numberedGrid(10, 10))
	dst := New(2, 2, 1, 0, 0, LethalObstacle)

	err := dst.CopyWindow(dst, 0, 0, 1, 1)
	test.That(t, err, test.ShouldNotBeNil)

	err = dst.CopyWindow(src, 8, 8, 5, 5)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "window bounds don't fit")
	sizeX, sizeY, _, _, _ := dst.Geometry()
	test.That(t, sizeX, test.ShouldEqual, 2)
	test.That(t, sizeY, test.ShouldEqual, 2)
	test.That(t, dst.Cost(1, 1), test.ShouldEqual, LethalObstacle)

	err = dst.CopyWindow(src, 5, 5, -2, -2)
	test.That(t, err, test.ShouldNotBeNil)
	sizeX, sizeY, _, _, _ = dst.Geometry()
	test.That(t, sizeX, test.ShouldEqual, 2)
	test.That(t, sizeY, test.ShouldEqual, 2)
	test.That(t, dst.SaveMap(io.Discard), test.ShouldBeNil)

	test.That(t, dst.CopyWindow(src, 1, 2, 3, 3), test.ShouldBeNil)
	sizeX, sizeY, res, ox, oy := dst.Geometry()
	test.That(t, sizeX, test.ShouldEqual, 3)
	test.That(t, sizeY, test.ShouldEqual, 3)
	test.That(t, res, test.ShouldEqual, 1.)
	test.That(t, ox, test.ShouldEqual, 1.)
	test.That(t, oy, test.ShouldEqual, 2.)
	test.That(t, dst.Cost(0, 0), test.ShouldEqual, uint8(21))
	test.That(t, dst.Cost(2, 2), test.ShouldEqual, uint8(43))
}

func TestCopyFrom(t *testing.T) {
	src := FromGrid(numberedGrid(4, 4))
	dst := New(1, 1, 0.1, 0, 0, FreeSpace)

	test.That(t, dst.CopyFrom(dst), test.ShouldNotBeNil)
	test.That(t, dst.CopyFrom(src), test.ShouldBeNil)
	test.That(t, dst.Snapshot().CharMap(), test.ShouldResemble, src.Snapshot().CharMap())

	// the copy does not alias the source
	src.SetCost(0, 0, LethalObstacle)
	test.That(t, dst.Cost(0, 0), test.ShouldEqual, uint8(0))
}

func TestCostmapConcurrentAccess(t *testing.T) {
	cm := New(20, 20, 0.5, 0, 0, NoInformation)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				cm.Mutate(func(g *Grid) {
					g.RaytraceLine(g.MarkCell(FreeSpace), 0, i, 19, i, maxCells)
				})
				cm.UpdateOrigin(float64(n%3)*0.5, 0)
				_ = cm.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	sizeX, sizeY, _, _, _ := cm.Geometry()
	test.That(t, sizeX, test.ShouldEqual, 20)
	test.That(t, sizeY, test.ShouldEqual, 20)
}
