// Package hounsfield converts raw stored scanner values into physical
// intensity units by applying the per-slice linear rescale transform carried
// by CT and PET series. For CT the result is Hounsfield Units; PET series use
// the same contract with their own slopes and intercepts.
package hounsfield

import (
	"fmt"
	"math"

	"lungprep/pkg/volume"
)

// Int16 range of the target integer representation. Values outside this
// range after rescaling indicate corrupt rescale metadata.
const (
	minRepresentable = math.MinInt16
	maxRepresentable = math.MaxInt16
)

// Rescale is the per-slice linear map from stored values to physical
// intensity: physical = stored*Slope + Intercept.
type Rescale struct {
	Slope     float64
	Intercept float64
}

// PrecisionOverflowError reports a rescaled intensity outside the
// representable int16 range.
type PrecisionOverflowError struct {
	// Slice is the index along the stacking axis where the overflow occurred.
	Slice int

	// Value is the offending rescaled intensity.
	Value float64
}

func (e *PrecisionOverflowError) Error() string {
	return fmt.Sprintf("rescaled intensity %.1f on slice %d exceeds representable range [%d, %d]",
		e.Value, e.Slice, minRepresentable, maxRepresentable)
}

// Convert applies one Rescale per slice along the given stacking axis and
// returns a new grid of integer-valued physical intensities.
//
// The transform is applied in floating point and rounded to the integer
// representation exactly once, at the end. Rounding the slope product to a
// narrow integer before adding the intercept would lose up to half a unit
// per voxel, so the order here is mandatory.
func Convert(stored *volume.Grid, rescales []Rescale, axis int) (*volume.Grid, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("stacking axis %d out of range [0, 2]", axis)
	}
	dims := stored.Dims()
	if len(rescales) != dims[axis] {
		return nil, fmt.Errorf("got %d rescale entries for %d slices along axis %d",
			len(rescales), dims[axis], axis)
	}

	out, err := volume.New(dims, stored.Spacing())
	if err != nil {
		return nil, err
	}

	src := stored.Data()
	dst := out.Data()
	for z := 0; z < dims[0]; z++ {
		for y := 0; y < dims[1]; y++ {
			base := (z*dims[1] + y) * dims[2]
			for x := 0; x < dims[2]; x++ {
				slice := sliceIndex(axis, z, y, x)
				r := rescales[slice]
				v := math.Round(src[base+x]*r.Slope + r.Intercept)
				if v < minRepresentable || v > maxRepresentable {
					return nil, &PrecisionOverflowError{Slice: slice, Value: v}
				}
				dst[base+x] = v
			}
		}
	}
	return out, nil
}

func sliceIndex(axis, z, y, x int) int {
	switch axis {
	case 0:
		return z
	case 1:
		return y
	default:
		return x
	}
}
