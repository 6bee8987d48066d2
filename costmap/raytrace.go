package costmap

import (
	"math"
)

// maxCells leaves a raytrace unbounded.
const maxCells = math.MaxInt

// CellAction is invoked with the raster index of every cell a raytrace visits.
type CellAction func(index int)

// MarkCell returns an action that overwrites each visited cell with value.
func (g *Grid) MarkCell(value uint8) CellAction {
	return func(index int) {
		g.costs[index] = value
	}
}

// RaytraceLine walks the Bresenham line from (x0, y0) to (x1, y1), both
// endpoints included, calling action for each cell. At most maxLength+1 cells
// are visited; pass math.MaxInt for an unbounded trace. Both endpoints must
// be inside the raster.
func (g *Grid) RaytraceLine(action CellAction, x0, y0, x1, y1, maxLength int) {
	dx := x1 - x0
	dy := y1 - y0

	absDX := absInt(dx)
	absDY := absInt(dy)

	offsetDX := sign(dx)
	offsetDY := sign(dy) * g.sizeX

	offset := y0*g.sizeX + x0

	// scale the line down if it is longer than maxLength
	dist := math.Hypot(float64(dx), float64(dy))
	scale := 1.0
	if dist > 0 {
		scale = math.Min(1.0, float64(maxLength)/dist)
	}

	// x dominant
	if absDX >= absDY {
		errorY := absDX / 2
		bresenham2D(action, absDX, absDY, errorY, offsetDX, offsetDY, offset, int(scale*float64(absDX)))
		return
	}

	// y dominant
	errorX := absDY / 2
	bresenham2D(action, absDY, absDX, errorX, offsetDY, offsetDX, offset, int(scale*float64(absDY)))
}

// bresenham2D steps along the dominant axis a, occasionally stepping along b.
func bresenham2D(action CellAction, absDA, absDB, errorB, offsetA, offsetB, offset, maxLength int) {
	end := absDA
	if maxLength < end {
		end = maxLength
	}
	for i := 0; i < end; i++ {
		action(offset)
		offset += offsetA
		errorB += absDB
		if errorB >= absDA {
			offset += offsetB
			errorB -= absDA
		}
	}
	action(offset)
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
