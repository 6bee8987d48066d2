package observation

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestLaserScanProject(t *testing.T) {
	scan := LaserScan{
		AngleMin:       -math.Pi / 2,
		AngleIncrement: math.Pi / 2,
		RangeMin:       0.1,
		RangeMax:       10,
		Ranges:         []float64{1, 2, 0.05, math.Inf(1), 20, math.NaN()},
	}
	pose := SensorPose{X: 1, Y: 2, Z: 0.3, Yaw: math.Pi / 2}

	points := scan.Project(pose)
	test.That(t, points, test.ShouldHaveLength, 2)

	// beam 0 points along the world +x axis
	test.That(t, points[0].X, test.ShouldAlmostEqual, 2)
	test.That(t, points[0].Y, test.ShouldAlmostEqual, 2)
	test.That(t, points[0].Z, test.ShouldEqual, 0.3)

	// beam 1 points along the world +y axis
	test.That(t, points[1].X, test.ShouldAlmostEqual, 1)
	test.That(t, points[1].Y, test.ShouldAlmostEqual, 4)
}
