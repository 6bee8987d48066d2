// Package wavefront computes navigation potentials over a cost raster by
// staged priority relaxation outward from a goal cell.
package wavefront

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/costmap/logging"
)

// PotHigh is the potential of a cell the wavefront has not reached.
const PotHigh = float32(1.0e10)

const invSqrt2 = 0.707106781

// Tier roles.
const (
	tierCurrent = iota
	tierNext
	tierOverflow
)

// Stats describes the last expansion.
type Stats struct {
	// Cycles is the number of relaxation cycles that ran.
	Cycles int
	// CellsVisited counts cell relaxations, repeats included.
	CellsVisited int
	// CellsQueued counts cells drained from the current tier.
	CellsQueued int
	// WidestTier is the largest current tier seen.
	WidestTier int
	// Reached reports whether the start cell received a finite potential.
	Reached bool
}

// An Expander holds the potential raster and work queues for repeated
// expansions. It is not safe for concurrent use; run one Expander per
// goroutine over independent cost snapshots.
type Expander struct {
	opts   Options
	logger logging.Logger

	nx, ny    int
	costs     []uint8
	potential []float32
	pending   []bool

	// tiers are addressed through role so that swapping two tiers is a
	// swap of indices.
	tiers [3][]int
	role  [3]int

	curT   float32
	priInc float32

	stats Stats
}

// New returns an expander with the given tuning.
func New(opts Options, logger logging.Logger) *Expander {
	return &Expander{
		opts:   opts,
		logger: logger,
		priInc: 2 * float32(opts.NeutralCost),
	}
}

// Options returns the expander tuning.
func (e *Expander) Options() Options {
	return e.opts
}

// Potential returns the potential raster of the last expansion, row-major
// with the dimensions it was run at. It is overwritten by the next expansion.
func (e *Expander) Potential() []float32 {
	return e.potential
}

// PotentialAt returns the potential of cell (x, y) from the last expansion.
func (e *Expander) PotentialAt(x, y int) float32 {
	return e.potential[y*e.nx+x]
}

// Size returns the dimensions of the last expansion.
func (e *Expander) Size() (nx, ny int) {
	return e.nx, e.ny
}

// Stats returns statistics for the last expansion.
func (e *Expander) Stats() Stats {
	return e.stats
}

// Expand propagates potentials outward from goal over the nx by ny raster
// costs for at most cycles cycles, stopping once start has a finite
// potential. It reports whether start was reached. Failing to reach start is
// a normal outcome meaning there is currently no known path.
func (e *Expander) Expand(
	ctx context.Context,
	costs []uint8,
	nx, ny int,
	goal, start image.Point,
	cycles int,
) bool {
	_, span := trace.StartSpan(ctx, "wavefront::Expand")
	defer span.End()

	e.reset(costs, nx, ny, goal)
	mustContain(start, nx, ny)
	startCell := start.Y*nx + start.X

	reached := e.run(cycles, func() bool { return e.potential[startCell] < PotHigh })
	e.stats.Reached = reached

	e.logger.CDebugw(ctx, "wavefront expansion finished",
		"reached", reached,
		"cycles", e.stats.Cycles,
		"visited", e.stats.CellsVisited,
		"queued", e.stats.CellsQueued,
		"widest_tier", e.stats.WidestTier)
	return reached
}

// ExpandAll propagates potentials outward from goal until every reachable
// cell is settled or the cycle budget runs out. It reports whether the
// wavefront settled within budget.
func (e *Expander) ExpandAll(ctx context.Context, costs []uint8, nx, ny int, goal image.Point, cycles int) bool {
	_, span := trace.StartSpan(ctx, "wavefront::ExpandAll")
	defer span.End()

	e.reset(costs, nx, ny, goal)
	settled := e.run(cycles, e.exhausted)

	e.logger.CDebugw(ctx, "wavefront full expansion finished",
		"settled", settled,
		"cycles", e.stats.Cycles,
		"visited", e.stats.CellsVisited)
	return settled
}

func mustContain(p image.Point, nx, ny int) {
	if p.X < 0 || p.X >= nx || p.Y < 0 || p.Y >= ny {
		panic(errors.Errorf("cell (%d, %d) is outside the %dx%d raster", p.X, p.Y, nx, ny))
	}
}

// reset sizes the work buffers for an nx by ny raster and seeds the goal.
func (e *Expander) reset(costs []uint8, nx, ny int, goal image.Point) {
	if len(costs) != nx*ny {
		panic(errors.Errorf("cost raster has %d cells, want %dx%d", len(costs), nx, ny))
	}
	mustContain(goal, nx, ny)

	ns := nx * ny
	if cap(e.potential) < ns {
		e.potential = make([]float32, ns)
		e.pending = make([]bool, ns)
	}
	e.potential = e.potential[:ns]
	e.pending = e.pending[:ns]
	for i := range e.potential {
		e.potential[i] = PotHigh
		e.pending[i] = false
	}
	e.nx, e.ny = nx, ny
	e.costs = costs

	for i := range e.tiers {
		e.tiers[i] = e.tiers[i][:0]
	}
	e.role = [3]int{tierCurrent, tierNext, tierOverflow}
	e.curT = float32(e.opts.LethalCost)
	e.stats = Stats{}

	k := goal.Y*nx + goal.X
	e.potential[k] = 0
	for _, n := range e.neighbors(k) {
		e.push(tierCurrent, n)
	}
}

// run relaxes tiers for at most cycles cycles, stopping when the tiers are
// exhausted or done reports true. It returns the final value of done.
func (e *Expander) run(cycles int, done func() bool) bool {
	for ; e.stats.Cycles < cycles; e.stats.Cycles++ {
		cur := &e.tiers[e.role[tierCurrent]]
		if len(*cur) == 0 && len(e.tiers[e.role[tierNext]]) == 0 {
			break
		}

		e.stats.CellsQueued += len(*cur)
		if len(*cur) > e.stats.WidestTier {
			e.stats.WidestTier = len(*cur)
		}

		// cells in the current tier may be queued again while it drains
		for _, n := range *cur {
			e.pending[n] = false
		}
		for _, n := range *cur {
			e.relax(n)
		}
		*cur = (*cur)[:0]

		e.swap(tierCurrent, tierNext)

		// this priority level is done, move on to the overflow
		if len(e.tiers[e.role[tierCurrent]]) == 0 {
			e.curT += e.priInc
			e.swap(tierCurrent, tierOverflow)
		}

		if done() {
			e.stats.Cycles++
			return true
		}
	}
	return done()
}

// exhausted reports whether no cells are waiting. An empty current tier
// implies the other two are empty as well.
func (e *Expander) exhausted() bool {
	return len(e.tiers[e.role[tierCurrent]]) == 0
}

func (e *Expander) swap(a, b int) {
	e.role[a], e.role[b] = e.role[b], e.role[a]
}

// push queues cell n on the tier playing role unless it is already queued
// or lethal.
func (e *Expander) push(role, n int) {
	if n < 0 || e.pending[n] || e.cost(n) >= float32(e.opts.LethalCost) {
		return
	}
	tier := &e.tiers[e.role[role]]
	*tier = append(*tier, n)
	e.pending[n] = true
}

func (e *Expander) cost(n int) float32 {
	return e.opts.traversalCost(e.costs[n])
}

// neighbors returns the 4-connected neighbors of n in left, right, up, down
// order, with -1 for neighbors off the raster.
func (e *Expander) neighbors(n int) [4]int {
	x, y := n%e.nx, n/e.nx
	out := [4]int{-1, -1, -1, -1}
	if x > 0 {
		out[0] = n - 1
	}
	if x < e.nx-1 {
		out[1] = n + 1
	}
	if y > 0 {
		out[2] = n - e.nx
	}
	if y < e.ny-1 {
		out[3] = n + e.nx
	}
	return out
}

func (e *Expander) potentialOf(n int) float32 {
	if n < 0 {
		return PotHigh
	}
	return e.potential[n]
}

func (e *Expander) edgeCost(n int) float32 {
	return float32(invSqrt2 * float64(e.cost(n)))
}

// relax recomputes the potential of cell n from its two lowest neighbors
// using a quadratic approximation of the planar wave update, and queues
// neighbors that the new value can improve.
func (e *Expander) relax(n int) {
	e.stats.CellsVisited++

	nb := e.neighbors(n)
	l, r := e.potentialOf(nb[0]), e.potentialOf(nb[1])
	u, d := e.potentialOf(nb[2]), e.potentialOf(nb[3])

	// lowest neighbor along each axis
	tc := min(l, r)
	ta := min(u, d)

	hf := e.cost(n)
	if hf >= float32(e.opts.LethalCost) {
		return
	}

	// ta becomes the lower of the two, dc the gap between them
	dc := tc - ta
	if dc < 0 {
		dc = -dc
		ta = tc
	}

	var pot float32
	if dc >= hf {
		pot = ta + hf
	} else {
		dr := float64(dc / hf)
		v := float32(-0.2301*dr*dr + 0.5307*dr + 0.7040)
		pot = ta + hf*v
	}

	if pot >= e.potential[n] {
		return
	}
	e.potential[n] = pot

	role := tierNext
	if pot >= e.curT {
		role = tierOverflow
	}
	for i, neighborPot := range [4]float32{l, r, u, d} {
		if nb[i] >= 0 && neighborPot > pot+e.edgeCost(nb[i]) {
			e.push(role, nb[i])
		}
	}
}
