package costmap

import (
	"io"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Costmap is a Grid shared between goroutines. Structural operations (resize,
// reset, origin update, window copy) and single-cell accessors take the
// costmap lock. Batches of cell writes, raytraces and anything needing the raw
// raster go through Mutate, which holds the lock for the whole batch.
//
// The lock is not reentrant: calling Costmap methods from inside a Mutate
// callback deadlocks. Use the Grid handed to the callback instead.
type Costmap struct {
	mu   sync.Mutex
	grid *Grid
}

// New returns a costmap of the given geometry with every cell set to defaultValue.
func New(sizeX, sizeY int, resolution, originX, originY float64, defaultValue uint8) *Costmap {
	return &Costmap{grid: NewGrid(sizeX, sizeY, resolution, originX, originY, defaultValue)}
}

// FromGrid wraps an existing grid. The caller must not keep using grid directly.
func FromGrid(grid *Grid) *Costmap {
	return &Costmap{grid: grid}
}

// Mutate runs fn with exclusive access to the underlying grid. The grid must
// not be retained past fn.
func (c *Costmap) Mutate(fn func(g *Grid)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.grid)
}

// Snapshot returns an independent copy of the current grid.
func (c *Costmap) Snapshot() *Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.Clone()
}

// Resize reallocates the raster and resets it to the default value.
func (c *Costmap) Resize(sizeX, sizeY int, resolution, originX, originY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid.Resize(sizeX, sizeY, resolution, originX, originY)
}

// ResetMaps sets every cell to the default value.
func (c *Costmap) ResetMaps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid.ResetMaps()
}

// ResetRegion sets the cells in [x0, xn) x [y0, yn) to the default value.
func (c *Costmap) ResetRegion(x0, y0, xn, yn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid.ResetRegion(x0, y0, xn, yn)
}

// UpdateOrigin shifts the rolling window to a new world origin.
func (c *Costmap) UpdateOrigin(newOriginX, newOriginY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid.UpdateOrigin(newOriginX, newOriginY)
}

// CopyFrom replaces this costmap's geometry and contents with a copy of src.
func (c *Costmap) CopyFrom(src *Costmap) error {
	if c == src {
		return errors.New("cannot copy a costmap onto itself")
	}
	snapshot := src.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = snapshot
	return nil
}

// CopyWindow replaces this costmap with the window of src whose lower left
// corner is (winOriginX, winOriginY) and whose extent is winSizeX by winSizeY
// meters. On error this costmap is left untouched.
func (c *Costmap) CopyWindow(src *Costmap, winOriginX, winOriginY, winSizeX, winSizeY float64) error {
	if c == src {
		return errors.New("cannot convert this costmap into a window of itself")
	}
	src.mu.Lock()
	window, err := src.grid.Window(winOriginX, winOriginY, winSizeX, winSizeY)
	src.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "cannot window a map that the window bounds don't fit inside of")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = window
	return nil
}

// Cost returns the cost of a cell; out of range cells panic.
func (c *Costmap) Cost(mx, my int) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.Cost(mx, my)
}

// SetCost sets the cost of a cell; out of range cells panic.
func (c *Costmap) SetCost(mx, my int, cost uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid.SetCost(mx, my, cost)
}

// SetConvexPolygonCost fills a convex world-frame polygon with cost. It
// returns false, changing nothing, if any vertex lies off the map.
func (c *Costmap) SetConvexPolygonCost(polygon []r2.Point, cost uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.SetConvexPolygonCost(polygon, cost)
}

// WorldToMap returns the cell containing a world point, if any.
func (c *Costmap) WorldToMap(wx, wy float64) (int, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.WorldToMap(wx, wy)
}

// MapToWorld returns the world coordinates of a cell center.
func (c *Costmap) MapToWorld(mx, my int) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.MapToWorld(mx, my)
}

// Geometry returns the raster size in cells, the resolution and the origin.
func (c *Costmap) Geometry() (sizeX, sizeY int, resolution, originX, originY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.grid
	return g.sizeX, g.sizeY, g.resolution, g.originX, g.originY
}

// SaveMap writes the raster as a plain-text P2 grayscale image.
func (c *Costmap) SaveMap(w io.Writer) error {
	return c.Snapshot().SaveMap(w)
}
