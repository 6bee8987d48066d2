package costmap

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"
)

func trace(g *Grid, x0, y0, x1, y1, maxLength int) []image.Point {
	var visited []image.Point
	g.RaytraceLine(func(index int) {
		mx, my := g.IndexToCells(index)
		visited = append(visited, image.Point{mx, my})
	}, x0, y0, x1, y1, maxLength)
	return visited
}

func TestRaytraceAxisAligned(t *testing.T) {
	const n = 10
	g := NewGrid(n, 3, 1, 0, 0, FreeSpace)

	visited := trace(g, 0, 0, n-1, 0, math.MaxInt)
	test.That(t, visited, test.ShouldHaveLength, n)
	for i, p := range visited {
		test.That(t, p, test.ShouldResemble, image.Point{i, 0})
	}

	visited = trace(g, n-1, 1, 0, 1, math.MaxInt)
	test.That(t, visited, test.ShouldHaveLength, n)
	for i, p := range visited {
		test.That(t, p, test.ShouldResemble, image.Point{n - 1 - i, 1})
	}

	visited = trace(g, 4, 0, 4, 2, math.MaxInt)
	test.That(t, visited, test.ShouldResemble, []image.Point{{4, 0}, {4, 1}, {4, 2}})

	visited = trace(g, 5, 2, 5, 2, math.MaxInt)
	test.That(t, visited, test.ShouldResemble, []image.Point{{5, 2}})
}

func TestRaytraceDiagonal(t *testing.T) {
	g := NewGrid(5, 5, 1, 0, 0, FreeSpace)
	visited := trace(g, 0, 0, 3, 3, math.MaxInt)
	test.That(t, visited, test.ShouldResemble, []image.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
}

func TestRaytraceMaxLength(t *testing.T) {
	g := NewGrid(10, 3, 1, 0, 0, FreeSpace)
	visited := trace(g, 0, 1, 8, 1, 4)
	test.That(t, visited, test.ShouldHaveLength, 5)
	test.That(t, visited[4], test.ShouldResemble, image.Point{4, 1})

	visited = trace(g, 0, 1, 8, 1, 0)
	test.That(t, visited, test.ShouldResemble, []image.Point{{0, 1}})
}

func TestRaytraceAllOctants(t *testing.T) {
	g := NewGrid(7, 7, 1, 0, 0, FreeSpace)
	const cx, cy = 3, 3
	for x1 := 0; x1 < 7; x1++ {
		for y1 := 0; y1 < 7; y1++ {
			visited := trace(g, cx, cy, x1, y1, math.MaxInt)

			dx, dy := absInt(x1-cx), absInt(y1-cy)
			steps := dx
			if dy > steps {
				steps = dy
			}
			test.That(t, visited, test.ShouldHaveLength, steps+1)
			test.That(t, visited[0], test.ShouldResemble, image.Point{cx, cy})
			test.That(t, visited[len(visited)-1], test.ShouldResemble, image.Point{x1, y1})

			seen := map[image.Point]bool{}
			for i, p := range visited {
				test.That(t, seen[p], test.ShouldBeFalse)
				seen[p] = true
				if i > 0 {
					prev := visited[i-1]
					test.That(t, absInt(p.X-prev.X), test.ShouldBeLessThanOrEqualTo, 1)
					test.That(t, absInt(p.Y-prev.Y), test.ShouldBeLessThanOrEqualTo, 1)
				}
			}
		}
	}
}

func TestMarkCell(t *testing.T) {
	g := NewGrid(6, 1, 1, 0, 0, LethalObstacle)
	g.RaytraceLine(g.MarkCell(FreeSpace), 1, 0, 4, 0, math.MaxInt)
	test.That(t, g.CharMap(), test.ShouldResemble,
		[]uint8{LethalObstacle, FreeSpace, FreeSpace, FreeSpace, FreeSpace, LethalObstacle})
}
