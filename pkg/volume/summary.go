package volume

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the intensity distribution of a grid. It is reported by
// the pipeline after each stage when verbose output is enabled.
type Summary struct {
	Min      float64
	Max      float64
	Mean     float64
	StdDev   float64
	Positive int
}

// Summarize computes distribution statistics over all voxels.
func Summarize(g *Grid) Summary {
	data := g.Data()
	s := Summary{Min: data[0], Max: data[0]}
	for _, v := range data {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		if v > 0 {
			s.Positive++
		}
	}
	s.Mean, s.StdDev = stat.MeanStdDev(data, nil)
	return s
}

// String formats the summary for progress output.
func (s Summary) String() string {
	return fmt.Sprintf("min=%.1f max=%.1f mean=%.2f std=%.2f positive=%d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Positive)
}
