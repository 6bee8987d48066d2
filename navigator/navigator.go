// Package navigator ties observation sources, the obstacle layer and the
// master costmap together, keeps the map up to date in the background, and
// computes wavefront potentials over snapshots of it.
package navigator

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/time/rate"

	"go.viam.com/costmap/config"
	"go.viam.com/costmap/costmap"
	"go.viam.com/costmap/layers/obstacle"
	"go.viam.com/costmap/logging"
	"go.viam.com/costmap/observation"
	"go.viam.com/costmap/utils"
	"go.viam.com/costmap/wavefront"
)

const readRetryInterval = 100 * time.Millisecond

// Pose is the robot pose in the map frame.
type Pose struct {
	X, Y, Yaw float64
}

// A PoseSource reports where the robot currently is.
type PoseSource interface {
	CurrentPose(ctx context.Context) (Pose, error)
}

// StaticPose is a PoseSource for a robot that never moves.
type StaticPose Pose

// CurrentPose returns the fixed pose.
func (p StaticPose) CurrentPose(context.Context) (Pose, error) {
	return Pose(p), nil
}

// Options carries the optional collaborators of a Navigator.
type Options struct {
	// Poses drives the background update loop. Without it the map only
	// changes through UpdateMap and UpdateMapAt.
	Poses PoseSource
	// Clock times buffer freshness and the update loop. Nil uses the wall clock.
	Clock clock.Clock
	// Registerer receives the navigator metrics. Nil uses the default registerer.
	Registerer prometheus.Registerer
}

// Potential is the result of one expansion.
type Potential struct {
	Reached bool
	Goal    image.Point
	Start   image.Point
	// Field is the row-major potential raster; unreached cells hold wavefront.PotHigh.
	Field []float32
	Stats wavefront.Stats
}

type boundSource struct {
	source observation.Source
	buffer *observation.Buffer
}

// A Navigator owns the master costmap and everything that feeds it.
type Navigator struct {
	cfg     config.Config
	logger  logging.Logger
	clock   clock.Clock
	poses   PoseSource
	metrics *Metrics

	master  *costmap.Costmap
	layer   *obstacle.Layer
	sources []boundSource

	staleWarning rate.Sometimes

	planMu   sync.Mutex
	expander *wavefront.Expander
	planGrid *costmap.Grid

	workers utils.StoppableWorkers
}

// New builds the master costmap, the obstacle layer and one source and
// buffer per configured observation source, then starts ingesting readings.
// An unsupported data type is an error.
func New(ctx context.Context, cfg *config.Config, opts Options, logger logging.Logger) (*Navigator, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	geom := cfg.Costmap
	n := &Navigator{
		cfg:          *cfg,
		logger:       logger,
		clock:        clk,
		poses:        opts.Poses,
		metrics:      metrics,
		master:       costmap.New(geom.SizeX, geom.SizeY, geom.Resolution, geom.OriginX, geom.OriginY, geom.DefaultValue()),
		staleWarning: rate.Sometimes{Interval: 5 * time.Second},
		expander:     wavefront.New(cfg.Planner.Options(), logger.Sublogger("wavefront")),
	}
	n.layer = obstacle.New("obstacle_layer", geom.SizeX, geom.SizeY, geom.Resolution, geom.OriginX, geom.OriginY,
		geom.LayerConfig(), logger.Sublogger("obstacle_layer"))

	for _, srcCfg := range cfg.Sources {
		src, err := observation.NewSource(ctx, srcCfg.Name, observation.DataType(srcCfg.DataType), srcCfg.Attributes, logger)
		if err != nil {
			return nil, multierr.Combine(err, n.closeSources(ctx))
		}
		buf := observation.NewBuffer(srcCfg.Name, srcCfg.BufferConfig(), clk)
		n.layer.AddBuffer(buf, srcCfg.IsMarking(), srcCfg.IsClearing())
		n.sources = append(n.sources, boundSource{source: src, buffer: buf})
		logger.Debugw("added observation source",
			"name", srcCfg.Name,
			"data_type", srcCfg.DataType,
			"marking", srcCfg.IsMarking(),
			"clearing", srcCfg.IsClearing())
	}

	n.workers = utils.NewStoppableWorkers()
	for _, bs := range n.sources {
		n.workers.AddWorkers(func(ctx context.Context) { n.ingest(ctx, bs) })
	}
	if n.poses != nil {
		n.workers.AddTicker(clk, geom.UpdateInterval(), func(ctx context.Context) {
			if err := n.UpdateMap(ctx); err != nil && ctx.Err() == nil {
				n.logger.Warnw("map update failed", "error", err)
			}
		})
	}
	return n, nil
}

// ingest moves readings from a source into its buffer until the workers stop
// or the source closes. Readings that arrive while the layer is inactive are
// dropped.
func (n *Navigator) ingest(ctx context.Context, bs boundSource) {
	for {
		reading, err := bs.source.NextReading(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, observation.ErrSourceClosed) {
				return
			}
			n.logger.Warnw("failed to read observation", "source", bs.source.Name(), "error", err)
			if !goutils.SelectContextOrWait(ctx, readRetryInterval) {
				return
			}
			continue
		}
		if !n.layer.IsActive() {
			continue
		}
		bs.buffer.Lock()
		bs.buffer.BufferCloud(reading.Origin, reading.Points)
		bs.buffer.Unlock()
	}
}

// AwaitObservations blocks until every source has buffered at least one
// observation or ctx is done.
func (n *Navigator) AwaitObservations(ctx context.Context) error {
	for {
		if n.allObserved() {
			return nil
		}
		if !goutils.SelectContextOrWait(ctx, 10*time.Millisecond) {
			return errors.Wrap(ctx.Err(), "waiting for observations")
		}
	}
}

func (n *Navigator) allObserved() bool {
	for _, bs := range n.sources {
		bs.buffer.Lock()
		empty := len(bs.buffer.Observations(nil)) == 0
		bs.buffer.Unlock()
		if empty {
			return false
		}
	}
	return true
}

// Source returns the named observation source.
func (n *Navigator) Source(name string) (observation.Source, bool) {
	for _, bs := range n.sources {
		if bs.source.Name() == name {
			return bs.source, true
		}
	}
	return nil, false
}

// Costmap returns the master costmap.
func (n *Navigator) Costmap() *costmap.Costmap {
	return n.master
}

// Layer returns the obstacle layer.
func (n *Navigator) Layer() *obstacle.Layer {
	return n.layer
}

// Metrics returns the navigator metrics.
func (n *Navigator) Metrics() *Metrics {
	return n.metrics
}

// UpdateMap runs one map update at the pose reported by the pose source.
func (n *Navigator) UpdateMap(ctx context.Context) error {
	if n.poses == nil {
		return errors.New("navigator has no pose source")
	}
	pose, err := n.poses.CurrentPose(ctx)
	if err != nil {
		return errors.Wrap(err, "getting robot pose")
	}
	_, err = n.UpdateMapAt(ctx, pose)
	return err
}

// UpdateMapAt runs one map update for a robot at pose: the master rolls with
// a rolling window, the obstacle layer folds in its observations, and the
// touched region of the master is rebuilt from the layer. It returns the
// world bounds that changed.
func (n *Navigator) UpdateMapAt(ctx context.Context, pose Pose) (costmap.Bounds, error) {
	ctx, span := trace.StartSpan(ctx, "navigator::UpdateMapAt")
	defer span.End()

	if n.cfg.Costmap.RollingWindow {
		n.master.Mutate(func(g *costmap.Grid) {
			g.UpdateOrigin(pose.X-g.SizeInMetersX()/2, pose.Y-g.SizeInMetersY()/2)
		})
	}

	bounds := costmap.EmptyBounds()
	n.layer.UpdateBounds(ctx, pose.X, pose.Y, pose.Yaw, &bounds)

	current := n.layer.IsCurrent()
	n.metrics.ObserveUpdate(current)
	if !current {
		n.staleWarning.Do(func() {
			n.logger.Warnw("observation sources are not current, the map may be out of date",
				"stale", n.staleSources())
		})
	}

	var err error
	n.master.Mutate(func(g *costmap.Grid) {
		x0, y0, xn, yn := g.CellWindow(bounds)
		if xn <= x0 || yn <= y0 {
			return
		}
		g.ResetRegion(x0, y0, xn, yn)
		err = n.layer.UpdateCosts(g, x0, y0, xn, yn)
	})
	if err != nil {
		return bounds, errors.Wrap(err, "merging obstacle layer")
	}
	return bounds, nil
}

func (n *Navigator) staleSources() []string {
	return lo.FilterMap(n.sources, func(bs boundSource, _ int) (string, bool) {
		bs.buffer.Lock()
		defer bs.buffer.Unlock()
		return bs.buffer.Name(), !bs.buffer.IsCurrent()
	})
}

// ComputePotential expands a wavefront from goal toward start over a
// snapshot of the master costmap. Both points are in world coordinates and
// must lie on the map. Not reaching start is reported through
// Potential.Reached, not as an error.
func (n *Navigator) ComputePotential(ctx context.Context, goal, start r2.Point) (Potential, error) {
	snap := n.master.Snapshot()
	goalCell, err := toCell(snap, "goal", goal)
	if err != nil {
		return Potential{}, err
	}
	startCell, err := toCell(snap, "start", start)
	if err != nil {
		return Potential{}, err
	}

	nx, ny := snap.SizeInCellsX(), snap.SizeInCellsY()
	return n.expand(snap, goalCell, startCell, func(e *wavefront.Expander) bool {
		return e.Expand(ctx, snap.CharMap(), nx, ny, goalCell, startCell, n.cfg.Planner.CyclesFor(nx, ny))
	}), nil
}

// ComputeNavigationFunction expands a wavefront from goal over the whole of a
// snapshot of the master costmap. Potential.Reached reports whether the
// wavefront settled within the cycle budget.
func (n *Navigator) ComputeNavigationFunction(ctx context.Context, goal r2.Point) (Potential, error) {
	snap := n.master.Snapshot()
	goalCell, err := toCell(snap, "goal", goal)
	if err != nil {
		return Potential{}, err
	}

	nx, ny := snap.SizeInCellsX(), snap.SizeInCellsY()
	return n.expand(snap, goalCell, goalCell, func(e *wavefront.Expander) bool {
		return e.ExpandAll(ctx, snap.CharMap(), nx, ny, goalCell, n.cfg.Planner.CyclesFor(nx, ny))
	}), nil
}

func (n *Navigator) expand(snap *costmap.Grid, goal, start image.Point, run func(*wavefront.Expander) bool) Potential {
	n.planMu.Lock()
	defer n.planMu.Unlock()

	began := n.clock.Now()
	reached := run(n.expander)
	stats := n.expander.Stats()
	n.metrics.ObserveExpansion(reached, n.clock.Since(began), stats.CellsVisited)
	n.planGrid = snap

	field := make([]float32, len(n.expander.Potential()))
	copy(field, n.expander.Potential())
	return Potential{
		Reached: reached,
		Goal:    goal,
		Start:   start,
		Field:   field,
		Stats:   stats,
	}
}

func toCell(g *costmap.Grid, what string, p r2.Point) (image.Point, error) {
	mx, my, ok := g.WorldToMap(p.X, p.Y)
	if !ok {
		return image.Point{}, errors.Errorf("%s (%.3f, %.3f) is outside the map", what, p.X, p.Y)
	}
	return image.Pt(mx, my), nil
}

// WriteHeatmap renders the most recent potential as a PNG.
func (n *Navigator) WriteHeatmap(w io.Writer, title string) error {
	n.planMu.Lock()
	defer n.planMu.Unlock()
	if n.planGrid == nil {
		return errors.New("no potential has been computed yet")
	}
	return n.expander.WriteHeatmap(w, wavefront.HeatmapConfig{
		Title:      title,
		Resolution: n.planGrid.Resolution(),
		OriginX:    n.planGrid.OriginX(),
		OriginY:    n.planGrid.OriginY(),
	})
}

// Close stops the background workers and closes every source.
func (n *Navigator) Close(ctx context.Context) error {
	if n.workers != nil {
		n.workers.Stop()
	}
	return n.closeSources(ctx)
}

func (n *Navigator) closeSources(ctx context.Context) error {
	var err error
	for _, bs := range n.sources {
		err = multierr.Combine(err, bs.source.Close(ctx))
	}
	return err
}
