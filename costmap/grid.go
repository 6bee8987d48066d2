// Package costmap implements a bounded 2D raster of traversal costs with an
// affine mapping to world coordinates, rolling-window re-centering, Bresenham
// raytracing and convex polygon rasterization.
//
// A Grid is the raw, unsynchronized raster. A Costmap wraps a Grid with the
// lock that serializes structural changes against readers and writers; see
// Costmap.Mutate for running a batch of Grid operations under that lock.
package costmap

import (
	"math"

	"github.com/pkg/errors"
)

// Grid is a dense row-major raster of cell costs. Cell (mx, my) covers the
// world square with lower left corner (originX+mx*resolution, originY+my*resolution).
// It is not safe for concurrent use; share it through a Costmap.
type Grid struct {
	sizeX, sizeY     int
	resolution       float64
	originX, originY float64
	defaultValue     uint8
	costs            []uint8
}

// NewGrid returns a grid of the given geometry with every cell set to defaultValue.
func NewGrid(sizeX, sizeY int, resolution, originX, originY float64, defaultValue uint8) *Grid {
	g := &Grid{defaultValue: defaultValue}
	g.Resize(sizeX, sizeY, resolution, originX, originY)
	return g
}

// Resize reallocates the raster for the new geometry and resets it to the default value.
// Existing data is not preserved.
func (g *Grid) Resize(sizeX, sizeY int, resolution, originX, originY float64) {
	if sizeX < 0 || sizeY < 0 {
		panic(errors.Errorf("cannot size a costmap to %dx%d cells", sizeX, sizeY))
	}
	if !(resolution > 0) {
		panic(errors.Errorf("costmap resolution must be positive, got %v", resolution))
	}
	g.sizeX = sizeX
	g.sizeY = sizeY
	g.resolution = resolution
	g.originX = originX
	g.originY = originY
	g.costs = make([]uint8, sizeX*sizeY)
	g.ResetMaps()
}

// ResetMaps sets every cell to the default value.
func (g *Grid) ResetMaps() {
	fill(g.costs, g.defaultValue)
}

// ResetRegion sets the cells in [x0, xn) x [y0, yn) to the default value. The
// window is clamped to the raster.
func (g *Grid) ResetRegion(x0, y0, xn, yn int) {
	x0, xn = clampInt(x0, 0, g.sizeX), clampInt(xn, 0, g.sizeX)
	y0, yn = clampInt(y0, 0, g.sizeY), clampInt(yn, 0, g.sizeY)
	if x0 >= xn {
		return
	}
	for y := y0; y < yn; y++ {
		start := y*g.sizeX + x0
		fill(g.costs[start:start+xn-x0], g.defaultValue)
	}
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	out := *g
	out.costs = make([]uint8, len(g.costs))
	copy(out.costs, g.costs)
	return &out
}

// SizeInCellsX is the number of columns.
func (g *Grid) SizeInCellsX() int { return g.sizeX }

// SizeInCellsY is the number of rows.
func (g *Grid) SizeInCellsY() int { return g.sizeY }

// SizeInMetersX is the distance between the centers of the first and last
// column plus half a cell.
func (g *Grid) SizeInMetersX() float64 { return (float64(g.sizeX) - 1 + 0.5) * g.resolution }

// SizeInMetersY is the distance between the centers of the first and last
// row plus half a cell.
func (g *Grid) SizeInMetersY() float64 { return (float64(g.sizeY) - 1 + 0.5) * g.resolution }

// Resolution is the edge length of a cell in meters.
func (g *Grid) Resolution() float64 { return g.resolution }

// OriginX is the world x of the lower left corner of cell (0, 0).
func (g *Grid) OriginX() float64 { return g.originX }

// OriginY is the world y of the lower left corner of cell (0, 0).
func (g *Grid) OriginY() float64 { return g.originY }

// DefaultValue is the cost cells take after a reset.
func (g *Grid) DefaultValue() uint8 { return g.defaultValue }

// SetDefaultValue changes the cost used by subsequent resets.
func (g *Grid) SetDefaultValue(v uint8) { g.defaultValue = v }

// CharMap returns the underlying raster, row-major, length SizeInCellsX*SizeInCellsY.
// The slice is replaced on Resize.
func (g *Grid) CharMap() []uint8 { return g.costs }

// Index returns the raster offset of cell (mx, my).
func (g *Grid) Index(mx, my int) int {
	return my*g.sizeX + mx
}

// IndexToCells is the inverse of Index.
func (g *Grid) IndexToCells(index int) (int, int) {
	my := index / g.sizeX
	return index - my*g.sizeX, my
}

// Cost returns the cost of a cell. Asking for a cell outside the raster is a
// programming error and panics.
func (g *Grid) Cost(mx, my int) uint8 {
	g.mustContain(mx, my)
	return g.costs[g.Index(mx, my)]
}

// SetCost sets the cost of a cell. Setting a cell outside the raster is a
// programming error and panics.
func (g *Grid) SetCost(mx, my int, cost uint8) {
	g.mustContain(mx, my)
	g.costs[g.Index(mx, my)] = cost
}

func (g *Grid) mustContain(mx, my int) {
	if mx < 0 || my < 0 || mx >= g.sizeX || my >= g.sizeY {
		panic(errors.Errorf("cell (%d, %d) is outside the %dx%d costmap", mx, my, g.sizeX, g.sizeY))
	}
}

// Contains reports whether (mx, my) is a cell of the raster.
func (g *Grid) Contains(mx, my int) bool {
	return mx >= 0 && my >= 0 && mx < g.sizeX && my < g.sizeY
}

// MapToWorld returns the world coordinates of the center of cell (mx, my).
func (g *Grid) MapToWorld(mx, my int) (float64, float64) {
	return g.originX + (float64(mx)+0.5)*g.resolution, g.originY + (float64(my)+0.5)*g.resolution
}

// WorldToMap returns the cell containing a world point. It reports false when
// the point is below the origin or past the far edge of the raster.
func (g *Grid) WorldToMap(wx, wy float64) (int, int, bool) {
	if wx < g.originX || wy < g.originY {
		return 0, 0, false
	}
	mx, my := g.WorldToMapNoBounds(wx, wy)
	if mx < g.sizeX && my < g.sizeY {
		return mx, my, true
	}
	return 0, 0, false
}

// WorldToMapNoBounds truncates the scaled offset from the origin without any
// bounds checks. Results may be negative or past the raster.
func (g *Grid) WorldToMapNoBounds(wx, wy float64) (int, int) {
	return int((wx - g.originX) / g.resolution), int((wy - g.originY) / g.resolution)
}

// WorldToMapEnforceBounds is WorldToMapNoBounds clamped to the nearest cell of the raster.
func (g *Grid) WorldToMapEnforceBounds(wx, wy float64) (int, int) {
	var mx, my int
	switch {
	case wx < g.originX:
		mx = 0
	case wx >= g.originX+float64(g.sizeX)*g.resolution:
		mx = g.sizeX - 1
	default:
		mx = int((wx - g.originX) / g.resolution)
	}
	switch {
	case wy < g.originY:
		my = 0
	case wy >= g.originY+float64(g.sizeY)*g.resolution:
		my = g.sizeY - 1
	default:
		my = int((wy - g.originY) / g.resolution)
	}
	return mx, my
}

// CellDistance converts a world distance to a whole number of cells, rounding up.
func (g *Grid) CellDistance(worldDist float64) int {
	return int(math.Max(0, math.Ceil(worldDist/g.resolution)))
}

// CellWindow converts world bounds to the half-open cell window
// [x0, xn) x [y0, yn) covering them, clamped to the raster. An empty bounds
// yields an empty window.
func (g *Grid) CellWindow(b Bounds) (x0, y0, xn, yn int) {
	if b.IsEmpty() || g.sizeX == 0 || g.sizeY == 0 {
		return 0, 0, 0, 0
	}
	x0, y0 = g.WorldToMapEnforceBounds(b.MinX, b.MinY)
	xn, yn = g.WorldToMapEnforceBounds(b.MaxX, b.MaxY)
	return x0, y0, xn + 1, yn + 1
}

// copyMapRegion copies a regionX x regionY block between two row-major rasters.
func copyMapRegion(
	src []uint8, srcX0, srcY0, srcSizeX int,
	dst []uint8, dstX0, dstY0, dstSizeX int,
	regionX, regionY int,
) {
	srcIndex := srcY0*srcSizeX + srcX0
	dstIndex := dstY0*dstSizeX + dstX0
	for i := 0; i < regionY; i++ {
		copy(dst[dstIndex:dstIndex+regionX], src[srcIndex:srcIndex+regionX])
		srcIndex += srcSizeX
		dstIndex += dstSizeX
	}
}

func fill(buf []uint8, v uint8) {
	for i := range buf {
		buf[i] = v
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
