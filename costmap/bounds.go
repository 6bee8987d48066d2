package costmap

import "math"

// Bounds is an axis-aligned world-frame rectangle accumulated from touched points.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// EmptyBounds returns bounds that contain nothing and grow to fit the first touch.
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// Touch grows the bounds to include (x, y).
func (b *Bounds) Touch(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

// Union grows the bounds to include other.
func (b *Bounds) Union(other Bounds) {
	if other.IsEmpty() {
		return
	}
	b.Touch(other.MinX, other.MinY)
	b.Touch(other.MaxX, other.MaxY)
}

// IsEmpty reports whether nothing has been touched.
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}
