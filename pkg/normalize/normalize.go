// Package normalize maps HU intensity volumes into a bounded range for
// downstream model input. The bounds clip dense structures such as bone so
// that the soft-tissue and air range uses the full output interval.
package normalize

import "lungprep/pkg/volume"

// Default bounds in HU, and the reference mean used for zero-centering.
const (
	DefaultMinBound  = -1000.0
	DefaultMaxBound  = 400.0
	DefaultPixelMean = 0.25
)

// Normalize returns a copy of g affinely rescaled so minBound maps to 0 and
// maxBound maps to 1, clamped to [0, 1].
//
// Normalize is stateless but not idempotent: applying it twice with the same
// bounds compresses the already-normalized range further. It is meant to run
// exactly once per pipeline run.
func Normalize(g *volume.Grid, minBound, maxBound float64) *volume.Grid {
	out := g.Clone()
	scale := 1 / (maxBound - minBound)
	data := out.Data()
	for i, v := range data {
		n := (v - minBound) * scale
		if n > 1 {
			n = 1
		} else if n < 0 {
			n = 0
		}
		data[i] = n
	}
	return out
}

// ZeroCenter returns a copy of g with a fixed reference mean subtracted from
// every voxel.
func ZeroCenter(g *volume.Grid, pixelMean float64) *volume.Grid {
	out := g.Clone()
	data := out.Data()
	for i := range data {
		data[i] -= pixelMean
	}
	return out
}
