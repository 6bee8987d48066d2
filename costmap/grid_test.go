package costmap

import (
	"testing"

	"go.viam.com/test"
)

func TestWorldToMapRoundTrip(t *testing.T) {
	g := NewGrid(10, 7, 0.05, -1.3, 2.1, NoInformation)
	for my := 0; my < g.SizeInCellsY(); my++ {
		for mx := 0; mx < g.SizeInCellsX(); mx++ {
			wx, wy := g.MapToWorld(mx, my)
			gotX, gotY, ok := g.WorldToMap(wx, wy)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, gotX, test.ShouldEqual, mx)
			test.That(t, gotY, test.ShouldEqual, my)
		}
	}
}

func TestWorldToMapBounds(t *testing.T) {
	g := NewGrid(4, 3, 0.5, 1, 2, FreeSpace)

	mx, my, ok := g.WorldToMap(1, 2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mx, test.ShouldEqual, 0)
	test.That(t, my, test.ShouldEqual, 0)

	mx, my, ok = g.WorldToMap(2.99, 3.49)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mx, test.ShouldEqual, 3)
	test.That(t, my, test.ShouldEqual, 2)

	for _, p := range [][2]float64{
		{0.99, 2.5},
		{1.5, 1.99},
		{3, 2.5},
		{2, 3.5},
		{10, 10},
		{-10, -10},
	} {
		_, _, ok := g.WorldToMap(p[0], p[1])
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestWorldToMapVariants(t *testing.T) {
	g := NewGrid(4, 3, 0.5, 1, 2, FreeSpace)

	// truncation toward zero, no clamping
	mx, my := g.WorldToMapNoBounds(-0.4, 2)
	test.That(t, mx, test.ShouldEqual, -2)
	test.That(t, my, test.ShouldEqual, 0)
	mx, my = g.WorldToMapNoBounds(5.1, 4.6)
	test.That(t, mx, test.ShouldEqual, 8)
	test.That(t, my, test.ShouldEqual, 5)

	mx, my = g.WorldToMapEnforceBounds(-5, 100)
	test.That(t, mx, test.ShouldEqual, 0)
	test.That(t, my, test.ShouldEqual, 2)
	mx, my = g.WorldToMapEnforceBounds(2.2, 2.7)
	test.That(t, mx, test.ShouldEqual, 2)
	test.That(t, my, test.ShouldEqual, 1)
}

func TestGridGeometry(t *testing.T) {
	g := NewGrid(4, 3, 0.5, 1, 2, FreeSpace)
	test.That(t, g.SizeInMetersX(), test.ShouldAlmostEqual, 1.75)
	test.That(t, g.SizeInMetersY(), test.ShouldAlmostEqual, 1.25)
	test.That(t, g.CharMap(), test.ShouldHaveLength, 12)

	test.That(t, g.Index(3, 2), test.ShouldEqual, 11)
	mx, my := g.IndexToCells(6)
	test.That(t, mx, test.ShouldEqual, 2)
	test.That(t, my, test.ShouldEqual, 1)

	test.That(t, g.CellDistance(1.2), test.ShouldEqual, 3)
	test.That(t, g.CellDistance(1.0), test.ShouldEqual, 2)
	test.That(t, g.CellDistance(-1), test.ShouldEqual, 0)
}

func TestResizeAndReset(t *testing.T) {
	g := NewGrid(3, 3, 1, 0, 0, NoInformation)
	for _, c := range g.CharMap() {
		test.That(t, c, test.ShouldEqual, NoInformation)
	}

	g.SetCost(1, 1, LethalObstacle)
	g.SetCost(2, 0, 12)
	g.ResetMaps()
	for _, c := range g.CharMap() {
		test.That(t, c, test.ShouldEqual, NoInformation)
	}

	g.SetCost(2, 2, LethalObstacle)
	g.Resize(5, 2, 0.1, -1, -1)
	test.That(t, g.SizeInCellsX(), test.ShouldEqual, 5)
	test.That(t, g.SizeInCellsY(), test.ShouldEqual, 2)
	test.That(t, g.Resolution(), test.ShouldEqual, 0.1)
	test.That(t, g.OriginX(), test.ShouldEqual, -1.)
	test.That(t, g.CharMap(), test.ShouldHaveLength, 10)
	for _, c := range g.CharMap() {
		test.That(t, c, test.ShouldEqual, NoInformation)
	}
}

func TestResetRegion(t *testing.T) {
	g := NewGrid(4, 4, 1, 0, 0, FreeSpace)
	for i := range g.CharMap() {
		g.CharMap()[i] = LethalObstacle
	}
	g.ResetRegion(1, 1, 3, 10)
	for my := 0; my < 4; my++ {
		for mx := 0; mx < 4; mx++ {
			if mx >= 1 && mx < 3 && my >= 1 {
				test.That(t, g.Cost(mx, my), test.ShouldEqual, FreeSpace)
			} else {
				test.That(t, g.Cost(mx, my), test.ShouldEqual, LethalObstacle)
			}
		}
	}
}

func TestCostOutOfBoundsPanics(t *testing.T) {
	g := NewGrid(2, 2, 1, 0, 0, FreeSpace)
	test.That(t, func() { g.Cost(2, 0) }, test.ShouldPanic)
	test.That(t, func() { g.Cost(0, -1) }, test.ShouldPanic)
	test.That(t, func() { g.SetCost(0, 2, LethalObstacle) }, test.ShouldPanic)
	test.That(t, func() { NewGrid(2, 2, 0, 0, 0, FreeSpace) }, test.ShouldPanic)
}

func TestCellWindow(t *testing.T) {
	g := NewGrid(10, 10, 0.5, 0, 0, FreeSpace)
	x0, y0, xn, yn := g.CellWindow(EmptyBounds())
	test.That(t, xn-x0, test.ShouldEqual, 0)
	test.That(t, yn-y0, test.ShouldEqual, 0)

	b := EmptyBounds()
	b.Touch(1.2, 0.7)
	b.Touch(-3, 2.1)
	x0, y0, xn, yn = g.CellWindow(b)
	test.That(t, x0, test.ShouldEqual, 0)
	test.That(t, y0, test.ShouldEqual, 1)
	test.That(t, xn, test.ShouldEqual, 3)
	test.That(t, yn, test.ShouldEqual, 5)
}

func TestClone(t *testing.T) {
	g := NewGrid(3, 2, 1, 0, 0, FreeSpace)
	g.SetCost(1, 1, 99)
	clone := g.Clone()
	g.SetCost(1, 1, 1)
	test.That(t, clone.Cost(1, 1), test.ShouldEqual, uint8(99))
	test.That(t, clone.SizeInCellsX(), test.ShouldEqual, 3)
}
