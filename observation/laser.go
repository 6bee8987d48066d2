package observation

import (
	"math"

	"github.com/golang/geo/r3"
)

// A LaserScan is a planar sweep of range readings. Beam i points at
// AngleMin + i*AngleIncrement radians in the sensor frame.
type LaserScan struct {
	AngleMin       float64
	AngleIncrement float64
	RangeMin       float64
	RangeMax       float64
	Ranges         []float64
}

// A SensorPose places a planar sensor in the world frame.
type SensorPose struct {
	X, Y, Z float64
	Yaw     float64
}

// Origin returns the sensor position.
func (p SensorPose) Origin() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Project converts the scan into world-frame points for a sensor at pose.
// Beams that are not finite or fall outside [RangeMin, RangeMax] are dropped.
func (s LaserScan) Project(pose SensorPose) []r3.Vector {
	points := make([]r3.Vector, 0, len(s.Ranges))
	for i, r := range s.Ranges {
		if math.IsNaN(r) || math.IsInf(r, 0) || r < s.RangeMin || r > s.RangeMax {
			continue
		}
		angle := pose.Yaw + s.AngleMin + float64(i)*s.AngleIncrement
		sin, cos := math.Sincos(angle)
		points = append(points, r3.Vector{
			X: pose.X + r*cos,
			Y: pose.Y + r*sin,
			Z: pose.Z,
		})
	}
	return points
}
