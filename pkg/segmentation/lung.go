// Package segmentation isolates the lung air space from a resampled CT
// volume. The algorithm is a deterministic multi-pass pipeline: threshold at
// the air/tissue boundary, morphological closing to seal airway connections
// to the outside, connected-component labeling to separate interior from
// exterior air, an optional slice-wise pass that folds solid structures
// (vessels, nodules) back into the lung region, a global largest-component
// filter, and a final dilation that restores the margin lost to closing.
package segmentation

import (
	"fmt"

	"lungprep/pkg/volume"
)

// Default pipeline parameters, in HU and voxels. They assume the input has
// been resampled to isotropic 1 mm spacing.
const (
	DefaultAirThreshold      = -320.0
	DefaultClosingHalfWidth  = 5
	DefaultDilationHalfWidth = 10
)

// Segmenter produces boolean lung masks from CT intensity volumes.
type Segmenter struct {
	// FillLungStructures folds solid structures enclosed by lung air back
	// into the mask, one slice at a time.
	FillLungStructures bool

	// Axis is the stacking axis used by the slice-wise fill pass.
	Axis int

	// Picker selects the exterior-air label. Defaults to CornerPicker.
	Picker BackgroundLabelPicker

	// AirThreshold separates air from tissue, in HU.
	AirThreshold float64

	// ClosingHalfWidth and DilationHalfWidth are the cubic structuring
	// element half-widths for the sealing and margin passes.
	ClosingHalfWidth  int
	DilationHalfWidth int
}

// NewSegmenter returns a segmenter with the default parameters.
func NewSegmenter() *Segmenter {
	return &Segmenter{
		FillLungStructures: true,
		Axis:               0,
		Picker:             CornerPicker{},
		AirThreshold:       DefaultAirThreshold,
		ClosingHalfWidth:   DefaultClosingHalfWidth,
		DilationHalfWidth:  DefaultDilationHalfWidth,
	}
}

// Segment returns a {0,1} mask of the lung region, same shape and spacing
// as the input. A volume with no detectable lung air yields an all-zero
// mask; that is a valid, reportable outcome, not an error.
func (s *Segmenter) Segment(ct *volume.Grid) (*volume.Grid, error) {
	if s.Axis < 0 || s.Axis > 2 {
		return nil, fmt.Errorf("stacking axis %d out of range [0, 2]", s.Axis)
	}
	dims := ct.Dims()

	// Step 1: threshold. Air 0, tissue 1.
	binary := make([]uint8, ct.Len())
	for i, v := range ct.Data() {
		if v > s.AirThreshold {
			binary[i] = 1
		}
	}

	// Step 2: closing seals the airway openings that would otherwise merge
	// lung air with exterior air. The +1 shift moves the domain to {1, 2},
	// reserving 0 as the background value of later labeling passes.
	closed := closeCube(binary, dims, s.ClosingHalfWidth)
	work := make([]int8, len(closed))
	for i, v := range closed {
		work[i] = int8(v) + 1
	}

	// Steps 3-5: label, identify exterior air, mark it as tissue-equivalent.
	labels, _ := label3D(work, dims)
	background := s.picker().Pick(labels, dims)
	for i, l := range labels {
		if l == background {
			work[i] = 2
		}
	}

	// Step 6: slice-wise fill of solid structures enclosed in lung air.
	if s.FillLungStructures {
		s.fillSlices(work, dims)
	}

	// Step 7: binarize. After subtracting the shift, interior air is 0 and
	// everything else 1; inverting leaves candidate lung voxels at 1.
	cand := make([]uint8, len(work))
	for i, v := range work {
		cand[i] = uint8(1 - (v - 1))
	}

	// Step 8: keep only the single largest candidate component. No
	// component at all means no lungs in the field of view; the mask stays
	// empty.
	candLabels, n := label3D(candVals(cand), dims)
	if max := largestLabel(candLabels, n); max != 0 {
		for i := range cand {
			if candLabels[i] != max {
				cand[i] = 0
			}
		}
	}

	// Step 9: dilate to compensate for the closing erosion and to give
	// downstream tumor-adjacency checks a safety margin. Dilation only ever
	// adds voxels.
	dilated := dilateCube(cand, dims, s.DilationHalfWidth)

	mask, err := volume.New(dims, ct.Spacing())
	if err != nil {
		return nil, err
	}
	out := mask.Data()
	for i, v := range dilated {
		out[i] = float64(v)
	}
	return mask, nil
}

func (s *Segmenter) picker() BackgroundLabelPicker {
	if s.Picker != nil {
		return s.Picker
	}
	return CornerPicker{}
}

// fillSlices runs the per-slice largest-component pass along the stacking
// axis. Within each slice, air not yet known to be exterior becomes the 2D
// background; the largest non-background component is taken to be the body
// cross-section, and everything outside it is reassigned into the lung air
// class so that enclosed solid structures stop punching holes in the mask.
// Slices with no non-background component are left unchanged.
func (s *Segmenter) fillSlices(work []int8, dims [3]int) {
	n := dims[s.Axis]
	nu, nv := planeDims(dims, s.Axis)
	slice := make([]int8, nu*nv)

	for idx := 0; idx < n; idx++ {
		for u := 0; u < nu; u++ {
			for v := 0; v < nv; v++ {
				slice[u*nv+v] = work[flatIndex(dims, s.Axis, idx, u, v)] - 1
			}
		}

		labels, count := labelSlice(slice, nu, nv)
		max := largestLabel(labels, count)
		if max == 0 {
			continue
		}

		for u := 0; u < nu; u++ {
			for v := 0; v < nv; v++ {
				if labels[u*nv+v] != max {
					work[flatIndex(dims, s.Axis, idx, u, v)] = 1
				}
			}
		}
	}
}

// planeDims returns the extents of the two in-plane axes for slices taken
// across the given axis.
func planeDims(dims [3]int, axis int) (nu, nv int) {
	switch axis {
	case 0:
		return dims[1], dims[2]
	case 1:
		return dims[0], dims[2]
	default:
		return dims[0], dims[1]
	}
}

// flatIndex maps (slice index along axis, in-plane u, in-plane v) to a flat
// grid index.
func flatIndex(dims [3]int, axis, idx, u, v int) int {
	switch axis {
	case 0:
		return (idx*dims[1]+u)*dims[2] + v
	case 1:
		return (u*dims[1]+idx)*dims[2] + v
	default:
		return (u*dims[1]+v)*dims[2] + idx
	}
}

func candVals(cand []uint8) []int8 {
	vals := make([]int8, len(cand))
	for i, v := range cand {
		vals[i] = int8(v)
	}
	return vals
}
