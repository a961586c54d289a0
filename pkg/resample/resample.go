// Package resample rescales voxel grids from their native, generally
// anisotropic spacing to a target spacing (isotropic 1x1x1 mm by default).
// Intensity volumes use trilinear interpolation; label and mask volumes must
// use nearest-neighbor interpolation so that no fractional or spurious label
// values are introduced.
package resample

import (
	"fmt"
	"math"

	"lungprep/pkg/volume"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	// Continuous is trilinear interpolation with edge-clamped sampling.
	// Trilinear weights are convex, so output values never overshoot the
	// minimum or maximum of the source volume.
	Continuous Mode = iota

	// Nearest is value-preserving nearest-neighbor interpolation. Required
	// for label and mask volumes.
	Nearest
)

// Isotropic is the default resampling target of 1 mm per voxel on all axes.
var Isotropic = volume.Spacing{1, 1, 1}

// Resample rescales g to approximately the target spacing and returns the
// new grid together with the spacing actually achieved.
//
// The new shape is round(shape * original/target) per axis, using
// round-half-away-from-zero. Because the shape is integral, the achieved
// spacing generally differs from the target; callers must use the returned
// spacing, not the requested one, for any downstream geometric reasoning.
// The physical extent of the volume is preserved to within one voxel width
// per axis.
func Resample(g *volume.Grid, target volume.Spacing, mode Mode) (*volume.Grid, volume.Spacing, error) {
	original := g.Spacing()
	if err := original.Validate(); err != nil {
		return nil, volume.Spacing{}, err
	}
	if err := target.Validate(); err != nil {
		return nil, volume.Spacing{}, err
	}

	dims := g.Dims()
	var newDims [3]int
	var achieved volume.Spacing
	for axis := range dims {
		resize := original[axis] / target[axis]
		n := int(math.Round(float64(dims[axis]) * resize))
		if n < 1 {
			n = 1
		}
		newDims[axis] = n
		realResize := float64(n) / float64(dims[axis])
		achieved[axis] = original[axis] / realResize
	}

	out, err := volume.New(newDims, achieved)
	if err != nil {
		return nil, volume.Spacing{}, err
	}

	switch mode {
	case Continuous:
		trilinear(g, out)
	case Nearest:
		nearest(g, out)
	default:
		return nil, volume.Spacing{}, fmt.Errorf("unknown interpolation mode %d", mode)
	}
	return out, achieved, nil
}

// srcPos maps an output coordinate to a source coordinate with endpoints
// aligned, so the first and last samples along each axis are preserved.
func srcPos(out, outDim, srcDim int) float64 {
	if outDim <= 1 || srcDim <= 1 {
		return 0
	}
	return float64(out) * float64(srcDim-1) / float64(outDim-1)
}

func nearest(src, dst *volume.Grid) {
	sd, dd := src.Dims(), dst.Dims()
	out := dst.Data()
	i := 0
	for z := 0; z < dd[0]; z++ {
		sz := clamp(int(math.Round(srcPos(z, dd[0], sd[0]))), sd[0])
		for y := 0; y < dd[1]; y++ {
			sy := clamp(int(math.Round(srcPos(y, dd[1], sd[1]))), sd[1])
			for x := 0; x < dd[2]; x++ {
				sx := clamp(int(math.Round(srcPos(x, dd[2], sd[2]))), sd[2])
				out[i] = src.At(sz, sy, sx)
				i++
			}
		}
	}
}

func trilinear(src, dst *volume.Grid) {
	sd, dd := src.Dims(), dst.Dims()
	out := dst.Data()
	i := 0
	for z := 0; z < dd[0]; z++ {
		pz := srcPos(z, dd[0], sd[0])
		z0, z1, fz := bracket(pz, sd[0])
		for y := 0; y < dd[1]; y++ {
			py := srcPos(y, dd[1], sd[1])
			y0, y1, fy := bracket(py, sd[1])
			for x := 0; x < dd[2]; x++ {
				px := srcPos(x, dd[2], sd[2])
				x0, x1, fx := bracket(px, sd[2])

				c000 := src.At(z0, y0, x0)
				c001 := src.At(z0, y0, x1)
				c010 := src.At(z0, y1, x0)
				c011 := src.At(z0, y1, x1)
				c100 := src.At(z1, y0, x0)
				c101 := src.At(z1, y0, x1)
				c110 := src.At(z1, y1, x0)
				c111 := src.At(z1, y1, x1)

				c00 := lerp(c000, c001, fx)
				c01 := lerp(c010, c011, fx)
				c10 := lerp(c100, c101, fx)
				c11 := lerp(c110, c111, fx)
				c0 := lerp(c00, c01, fy)
				c1 := lerp(c10, c11, fy)
				out[i] = lerp(c0, c1, fz)
				i++
			}
		}
	}
}

// bracket returns the two source indices surrounding pos, edge-clamped, and
// the fractional weight of the upper index.
func bracket(pos float64, dim int) (lo, hi int, frac float64) {
	lo = int(math.Floor(pos))
	if lo < 0 {
		lo = 0
	}
	if lo > dim-1 {
		lo = dim - 1
	}
	hi = lo + 1
	if hi > dim-1 {
		hi = dim - 1
	}
	return lo, hi, pos - float64(lo)
}

func clamp(v, dim int) int {
	if v < 0 {
		return 0
	}
	if v > dim-1 {
		return dim - 1
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
