// Package obstacle implements the obstacle layer: it clears free space along
// sensor rays, marks observed obstacles, and merges the result into a master
// costmap.
package obstacle

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/time/rate"

	"go.viam.com/costmap/costmap"
	"go.viam.com/costmap/logging"
	"go.viam.com/costmap/observation"
)

// Config controls how the layer ages and positions its raster.
type Config struct {
	// RollingWindow re-centers the raster on the robot every update.
	RollingWindow bool
	// TrackUnknownSpace starts cells as unknown rather than free.
	TrackUnknownSpace bool
	// MaxObstacleHeight is the highest point that may mark an obstacle. Zero
	// marks only points at or below ground level.
	MaxObstacleHeight float64
}

// A Layer accumulates marking and clearing observations into its own costmap.
type Layer struct {
	name    string
	config  Config
	costmap *costmap.Costmap
	logger  logging.Logger

	originWarning rate.Sometimes

	buffersMu       sync.Mutex
	markingBuffers  []*observation.Buffer
	clearingBuffers []*observation.Buffer
	buffers         []*observation.Buffer

	stateMu sync.Mutex
	current bool
	active  bool
}

// New returns an active layer whose raster has the given geometry.
func New(
	name string,
	sizeX, sizeY int,
	resolution, originX, originY float64,
	config Config,
	logger logging.Logger,
) *Layer {
	return &Layer{
		name:          name,
		config:        config,
		costmap:       costmap.New(sizeX, sizeY, resolution, originX, originY, defaultValue(config)),
		logger:        logger,
		originWarning: rate.Sometimes{Interval: time.Second},
		current:       true,
		active:        true,
	}
}

func defaultValue(config Config) uint8 {
	if config.TrackUnknownSpace {
		return costmap.NoInformation
	}
	return costmap.FreeSpace
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// Costmap returns the layer's own raster.
func (l *Layer) Costmap() *costmap.Costmap {
	return l.costmap
}

// AddBuffer attaches a sensor buffer. A buffer may be used for marking,
// clearing, or both.
func (l *Layer) AddBuffer(buf *observation.Buffer, marking, clearing bool) {
	l.buffersMu.Lock()
	defer l.buffersMu.Unlock()
	l.buffers = append(l.buffers, buf)
	if marking {
		l.markingBuffers = append(l.markingBuffers, buf)
	}
	if clearing {
		l.clearingBuffers = append(l.clearingBuffers, buf)
	}
}

// MatchSize resizes the layer raster to the given geometry, discarding its contents.
func (l *Layer) MatchSize(sizeX, sizeY int, resolution, originX, originY float64) {
	l.costmap.Resize(sizeX, sizeY, resolution, originX, originY)
}

// IsCurrent reports whether every buffer was current during the last update.
func (l *Layer) IsCurrent() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.current
}

// IsActive reports whether the layer is taking part in updates.
func (l *Layer) IsActive() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.active
}

// Activate resumes updates and restarts every buffer's freshness window so
// time spent inactive does not count as staleness.
func (l *Layer) Activate() {
	l.stateMu.Lock()
	l.active = true
	l.stateMu.Unlock()

	l.buffersMu.Lock()
	defer l.buffersMu.Unlock()
	for _, buf := range l.buffers {
		buf.Lock()
		buf.ResetLastUpdated()
		buf.Unlock()
	}
}

// Deactivate pauses updates. The raster keeps its contents.
func (l *Layer) Deactivate() {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.active = false
}

// Reset clears the raster and reactivates the layer.
func (l *Layer) Reset() {
	l.Deactivate()
	l.costmap.ResetMaps()
	l.stateMu.Lock()
	l.current = true
	l.stateMu.Unlock()
	l.Activate()
}

// UpdateBounds runs one update cycle for a robot at (robotX, robotY, robotYaw):
// it re-centers a rolling window, clears along every clearing ray, then marks
// every obstacle, growing bounds to cover what it touched.
func (l *Layer) UpdateBounds(ctx context.Context, robotX, robotY, robotYaw float64, bounds *costmap.Bounds) {
	ctx, span := trace.StartSpan(ctx, "costmap::obstacle::UpdateBounds")
	defer span.End()

	if !l.IsActive() {
		return
	}

	marking, clearing, current := l.collectObservations()
	l.stateMu.Lock()
	l.current = current
	l.stateMu.Unlock()

	l.costmap.Mutate(func(g *costmap.Grid) {
		if l.config.RollingWindow {
			g.UpdateOrigin(robotX-g.SizeInMetersX()/2, robotY-g.SizeInMetersY()/2)
		}
		for _, obs := range clearing {
			l.raytraceFreespace(g, obs, bounds)
		}
		for _, obs := range marking {
			l.markObstacles(g, obs, bounds)
		}
	})

	l.logger.CDebugw(ctx, "updated obstacle layer",
		"marking", len(marking), "clearing", len(clearing), "current", current, "yaw", robotYaw)
}

// collectObservations drains every buffer, holding one buffer lock at a time.
// Freshness is the AND over all buffers; every buffer is read even after one
// is found stale.
func (l *Layer) collectObservations() (marking, clearing []observation.Observation, current bool) {
	l.buffersMu.Lock()
	defer l.buffersMu.Unlock()

	current = true
	for _, buf := range l.markingBuffers {
		buf.Lock()
		marking = buf.Observations(marking)
		current = buf.IsCurrent() && current
		buf.Unlock()
	}
	for _, buf := range l.clearingBuffers {
		buf.Lock()
		clearing = buf.Observations(clearing)
		current = buf.IsCurrent() && current
		buf.Unlock()
	}
	return marking, clearing, current
}

// raytraceFreespace clears every cell between the observation origin and each
// of its points, clipping rays that leave the raster.
func (l *Layer) raytraceFreespace(g *costmap.Grid, obs observation.Observation, bounds *costmap.Bounds) {
	ox, oy := obs.Origin.X, obs.Origin.Y
	x0, y0, ok := g.WorldToMap(ox, oy)
	if !ok {
		l.originWarning.Do(func() {
			l.logger.Warnw("sensor origin is out of map bounds, the costmap cannot raytrace for it",
				"x", ox, "y", oy)
		})
		return
	}
	bounds.Touch(ox, oy)

	originX, originY := g.OriginX(), g.OriginY()
	mapEndX := originX + float64(g.SizeInCellsX())*g.Resolution()
	mapEndY := originY + float64(g.SizeInCellsY())*g.Resolution()
	cellRange := g.CellDistance(obs.RaytraceRange)
	markFree := g.MarkCell(costmap.FreeSpace)

	for _, p := range obs.Cloud {
		wx, wy := p.X, p.Y
		a := wx - ox
		b := wy - oy

		// scale the ray back inside the raster along its own direction
		if wx < originX {
			t := (originX - ox) / a
			wx = originX
			wy = oy + b*t
		}
		if wy < originY {
			t := (originY - oy) / b
			wx = ox + a*t
			wy = originY
		}
		if wx > mapEndX {
			t := (mapEndX - ox) / a
			wx = mapEndX - .001
			wy = oy + b*t
		}
		if wy > mapEndY {
			t := (mapEndY - oy) / b
			wx = ox + a*t
			wy = mapEndY - .001
		}

		x1, y1, ok := g.WorldToMap(wx, wy)
		if !ok {
			continue
		}
		bounds.Touch(wx, wy)
		g.RaytraceLine(markFree, x0, y0, x1, y1, cellRange)
	}
}

// markObstacles marks every point low and close enough as lethal.
func (l *Layer) markObstacles(g *costmap.Grid, obs observation.Observation, bounds *costmap.Bounds) {
	sqObstacleRange := obs.ObstacleRange * obs.ObstacleRange
	for _, p := range obs.Cloud {
		if p.Z > l.config.MaxObstacleHeight {
			continue
		}
		if p.Sub(obs.Origin).Norm2() >= sqObstacleRange {
			continue
		}
		mx, my, ok := g.WorldToMap(p.X, p.Y)
		if !ok {
			continue
		}
		g.SetCost(mx, my, costmap.LethalObstacle)
		bounds.Touch(p.X, p.Y)
	}
}

// UpdateCosts merges the layer into master over the half-open cell window
// [x0, xn) x [y0, yn): unknown layer cells are skipped, unknown master cells
// take the layer cost, and every other cell keeps the larger of the two
// costs. The layer and master must share geometry.
func (l *Layer) UpdateCosts(master *costmap.Grid, x0, y0, xn, yn int) error {
	if !l.IsActive() {
		return nil
	}
	var err error
	l.costmap.Mutate(func(g *costmap.Grid) {
		if g.SizeInCellsX() != master.SizeInCellsX() || g.SizeInCellsY() != master.SizeInCellsY() {
			err = errors.Errorf("layer %q is %dx%d but the master costmap is %dx%d", l.name,
				g.SizeInCellsX(), g.SizeInCellsY(), master.SizeInCellsX(), master.SizeInCellsY())
			return
		}
		x0, xn = max(x0, 0), min(xn, g.SizeInCellsX())
		y0, yn = max(y0, 0), min(yn, g.SizeInCellsY())

		layerCosts, masterCosts := g.CharMap(), master.CharMap()
		for j := y0; j < yn; j++ {
			for i := x0; i < xn; i++ {
				index := g.Index(i, j)
				cost := layerCosts[index]
				if cost == costmap.NoInformation {
					continue
				}
				if old := masterCosts[index]; old == costmap.NoInformation || old < cost {
					masterCosts[index] = cost
				}
			}
		}
	})
	return err
}
