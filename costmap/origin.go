package costmap

import (
	"github.com/pkg/errors"
)

// UpdateOrigin moves the raster to a new world origin, snapped to the existing
// cell lattice. Cells in both the old and new windows keep their cost; cells
// that scrolled into view take the default value.
func (g *Grid) UpdateOrigin(newOriginX, newOriginY float64) {
	// project the new origin into the grid
	cellOX := int((newOriginX - g.originX) / g.resolution)
	cellOY := int((newOriginY - g.originY) / g.resolution)
	if cellOX == 0 && cellOY == 0 {
		return
	}

	// keep things grid aligned
	newGridOX := g.originX + float64(cellOX)*g.resolution
	newGridOY := g.originY + float64(cellOY)*g.resolution

	// overlap of the old and new windows, in old cell coordinates
	lowerLeftX := clampInt(cellOX, 0, g.sizeX)
	lowerLeftY := clampInt(cellOY, 0, g.sizeY)
	upperRightX := clampInt(cellOX+g.sizeX, 0, g.sizeX)
	upperRightY := clampInt(cellOY+g.sizeY, 0, g.sizeY)

	cellSizeX := upperRightX - lowerLeftX
	cellSizeY := upperRightY - lowerLeftY

	if cellSizeX <= 0 || cellSizeY <= 0 {
		g.ResetMaps()
		g.originX = newGridOX
		g.originY = newGridOY
		return
	}

	local := make([]uint8, cellSizeX*cellSizeY)
	copyMapRegion(g.costs, lowerLeftX, lowerLeftY, g.sizeX, local, 0, 0, cellSizeX, cellSizeX, cellSizeY)

	g.ResetMaps()
	g.originX = newGridOX
	g.originY = newGridOY

	// where the overlap lands in the new window
	startX := lowerLeftX - cellOX
	startY := lowerLeftY - cellOY
	copyMapRegion(local, 0, 0, cellSizeX, g.costs, startX, startY, g.sizeX, cellSizeX, cellSizeY)
}

// Window returns a new grid holding the sub-rectangle of g whose lower left
// corner is at the world point (winOriginX, winOriginY) and which extends
// winSizeX by winSizeY meters. Both corners must lie inside g and the extents
// must not be negative.
func (g *Grid) Window(winOriginX, winOriginY, winSizeX, winSizeY float64) (*Grid, error) {
	if winSizeX < 0 || winSizeY < 0 {
		return nil, errors.Errorf("window size (%.2f, %.2f) must not be negative", winSizeX, winSizeY)
	}
	lowerLeftX, lowerLeftY, ok := g.WorldToMap(winOriginX, winOriginY)
	if !ok {
		return nil, errors.Errorf("window origin (%.2f, %.2f) is outside the costmap", winOriginX, winOriginY)
	}
	upperRightX, upperRightY, ok := g.WorldToMap(winOriginX+winSizeX, winOriginY+winSizeY)
	if !ok {
		return nil, errors.Errorf(
			"window corner (%.2f, %.2f) is outside the costmap", winOriginX+winSizeX, winOriginY+winSizeY)
	}

	out := &Grid{
		sizeX:        upperRightX - lowerLeftX,
		sizeY:        upperRightY - lowerLeftY,
		resolution:   g.resolution,
		originX:      winOriginX,
		originY:      winOriginY,
		defaultValue: g.defaultValue,
	}
	out.costs = make([]uint8, out.sizeX*out.sizeY)
	copyMapRegion(g.costs, lowerLeftX, lowerLeftY, g.sizeX, out.costs, 0, 0, out.sizeX, out.sizeX, out.sizeY)
	return out, nil
}
