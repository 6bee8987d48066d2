package wavefront

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Summary describes the reached part of a potential raster.
type Summary struct {
	Reached   int
	Unreached int
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
}

// Summarize computes statistics over the finite potentials.
func Summarize(potential []float32) Summary {
	finite := make([]float64, 0, len(potential))
	for _, p := range potential {
		if p < PotHigh {
			finite = append(finite, float64(p))
		}
	}

	s := Summary{Reached: len(finite), Unreached: len(potential) - len(finite)}
	switch len(finite) {
	case 0:
		return s
	case 1:
		s.Min, s.Max, s.Mean = finite[0], finite[0], finite[0]
		return s
	}
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	return s
}
