package wavefront

import "go.viam.com/costmap/costmap"

// Options tune how raw cell costs become traversal costs.
type Options struct {
	// LethalCost is the traversal cost at and above which a cell blocks propagation.
	LethalCost uint8
	// NeutralCost is added to every traversable cell.
	NeutralCost uint8
	// CostFactor scales the raw cell cost.
	CostFactor float32
	// AllowUnknown lets the wavefront cross cells with no information.
	AllowUnknown bool
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		LethalCost:   costmap.InscribedInflatedObstacle,
		NeutralCost:  50,
		CostFactor:   3.0,
		AllowUnknown: true,
	}
}

// traversalCost maps a raw cell cost to the cost of entering that cell.
// Cells below lethal-1 (and unknown cells when allowed) cost raw*factor plus
// neutral, capped at lethal-1; everything else is lethal.
func (o Options) traversalCost(raw uint8) float32 {
	lethal := float32(o.LethalCost)
	c := float32(raw)
	if c < lethal-1 || (o.AllowUnknown && raw == costmap.NoInformation) {
		c = c*o.CostFactor + float32(o.NeutralCost)
		if c >= lethal {
			c = lethal - 1
		}
		return c
	}
	return lethal
}
