package costmap

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
)

// PolygonOutlineCells returns the cells on the outline of a polygon given in
// map coordinates. The last vertex is joined back to the first. Vertices
// appear once per edge they belong to.
func (g *Grid) PolygonOutlineCells(polygon []image.Point) []image.Point {
	var cells []image.Point
	gather := func(index int) {
		mx, my := g.IndexToCells(index)
		cells = append(cells, image.Point{mx, my})
	}
	for i := 0; i+1 < len(polygon); i++ {
		g.RaytraceLine(gather, polygon[i].X, polygon[i].Y, polygon[i+1].X, polygon[i+1].Y, maxCells)
	}
	if len(polygon) > 0 {
		last := len(polygon) - 1
		g.RaytraceLine(gather, polygon[last].X, polygon[last].Y, polygon[0].X, polygon[0].Y, maxCells)
	}
	return cells
}

// ConvexFillCells returns every cell covered by a convex polygon given in map
// coordinates, outline included, each exactly once, ordered by column then
// row. Fewer than three vertices yields nothing.
func (g *Grid) ConvexFillCells(polygon []image.Point) []image.Point {
	if len(polygon) < 3 {
		return nil
	}

	outline := g.PolygonOutlineCells(polygon)
	sort.Slice(outline, func(i, j int) bool {
		if outline[i].X != outline[j].X {
			return outline[i].X < outline[j].X
		}
		return outline[i].Y < outline[j].Y
	})

	var cells []image.Point
	for i := 0; i < len(outline); {
		// outline is sorted, so the column's span runs from its first to its last entry
		x := outline[i].X
		minY := outline[i].Y
		for i < len(outline) && outline[i].X == x {
			i++
		}
		maxY := outline[i-1].Y
		for y := minY; y <= maxY; y++ {
			cells = append(cells, image.Point{x, y})
		}
	}
	return cells
}

// SetConvexPolygonCost sets every cell covered by a convex world-frame polygon
// to cost. If any vertex is off the map nothing is changed and false is returned.
func (g *Grid) SetConvexPolygonCost(polygon []r2.Point, cost uint8) bool {
	mapPolygon := make([]image.Point, 0, len(polygon))
	for _, p := range polygon {
		mx, my, ok := g.WorldToMap(p.X, p.Y)
		if !ok {
			return false
		}
		mapPolygon = append(mapPolygon, image.Point{mx, my})
	}

	for _, c := range g.ConvexFillCells(mapPolygon) {
		g.costs[g.Index(c.X, c.Y)] = cost
	}
	return true
}
