// Package observation buffers world-frame sensor readings and hands them to
// costmap layers as Observations.
package observation

import (
	"github.com/golang/geo/r3"
)

// An Observation is one sensor reading in the world frame: the sensor origin,
// the points it saw, and how far from the origin points may mark obstacles or
// clear free space.
type Observation struct {
	Origin        r3.Vector
	Cloud         []r3.Vector
	ObstacleRange float64
	RaytraceRange float64
}

// A Reading is the raw output of a Source before it is buffered.
type Reading struct {
	Origin r3.Vector
	Points []r3.Vector
}
