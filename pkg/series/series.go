// Package series loads CT and PET scan series from per-patient DICOM
// directories into raw voxel grids with spacing metadata and per-slice
// rescale parameters. CT slices are .dcm files; PET slices are extensionless
// IM_<n> files, following the layout of the source datasets.
package series

import (
	"fmt"
	"math"
	"sort"

	"lungprep/pkg/hounsfield"
	"lungprep/pkg/volume"
)

// MalformedSeriesError reports a series that cannot be assembled into a
// coherent volume: too few slices, inconsistent geometry, or an
// unresolvable slice thickness.
type MalformedSeriesError struct {
	Dir    string
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed series in %s: %s", e.Dir, e.Reason)
}

// SliceMeta is the per-slice metadata and pixel payload extracted from one
// DICOM instance.
type SliceMeta struct {
	// File is the originating filename, kept for error reporting.
	File string

	// Position is ImagePositionPatient; the z component orders the stack.
	Position    [3]float64
	HasPosition bool

	// Location is the SliceLocation tag, the first thickness fallback.
	Location    float64
	HasLocation bool

	// Thickness is the SliceThickness tag, the last thickness fallback.
	Thickness    float64
	HasThickness bool

	// PixelSpacing is the in-plane (row, column) spacing in mm.
	PixelSpacing [2]float64

	Rows, Cols int

	Rescale hounsfield.Rescale

	// Pixels holds the stored values in row-major order, before any
	// rescale is applied.
	Pixels []float64
}

// Series is a loaded scan: stored values with spacing, plus the per-slice
// rescale parameters to be consumed exactly once by the Hounsfield
// conversion.
type Series struct {
	// Grid holds stored values with dims (slices, rows, cols) and spacing
	// (thickness, row spacing, column spacing).
	Grid *volume.Grid

	// Rescales has one entry per slice, in stacking order.
	Rescales []hounsfield.Rescale

	// ThicknessSource names the fallback strategy that resolved the slice
	// thickness, for diagnostics.
	ThicknessSource string
}

const spacingTolerance = 1e-6

// assemble sorts the slices along the stacking axis, validates geometric
// consistency, resolves slice thickness, and builds the stored-value grid.
func assemble(dir string, slices []SliceMeta) (*Series, error) {
	if len(slices) < 2 {
		return nil, &MalformedSeriesError{Dir: dir,
			Reason: fmt.Sprintf("need at least 2 slices, found %d", len(slices))}
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return stackKey(slices[i]) < stackKey(slices[j])
	})

	first := slices[0]
	for _, s := range slices[1:] {
		if s.Rows != first.Rows || s.Cols != first.Cols {
			return nil, &MalformedSeriesError{Dir: dir,
				Reason: fmt.Sprintf("slice %s is %dx%d, expected %dx%d",
					s.File, s.Rows, s.Cols, first.Rows, first.Cols)}
		}
		if math.Abs(s.PixelSpacing[0]-first.PixelSpacing[0]) > spacingTolerance ||
			math.Abs(s.PixelSpacing[1]-first.PixelSpacing[1]) > spacingTolerance {
			return nil, &MalformedSeriesError{Dir: dir,
				Reason: fmt.Sprintf("slice %s has in-plane spacing %v, expected %v",
					s.File, s.PixelSpacing, first.PixelSpacing)}
		}
		if len(s.Pixels) != s.Rows*s.Cols {
			return nil, &MalformedSeriesError{Dir: dir,
				Reason: fmt.Sprintf("slice %s has %d pixels for %dx%d",
					s.File, len(s.Pixels), s.Rows, s.Cols)}
		}
	}

	thickness, source, err := resolveThickness(dir, slices)
	if err != nil {
		return nil, err
	}

	dims := [3]int{len(slices), first.Rows, first.Cols}
	spacing := volume.Spacing{thickness, first.PixelSpacing[0], first.PixelSpacing[1]}
	data := make([]float64, dims[0]*dims[1]*dims[2])
	rescales := make([]hounsfield.Rescale, len(slices))
	for z, s := range slices {
		copy(data[z*dims[1]*dims[2]:], s.Pixels)
		rescales[z] = s.Rescale
	}

	grid, err := volume.FromData(data, dims, spacing)
	if err != nil {
		return nil, err
	}
	return &Series{Grid: grid, Rescales: rescales, ThicknessSource: source}, nil
}

// stackKey orders slices along the stacking axis, preferring the patient
// position, then the slice location, then input order.
func stackKey(s SliceMeta) float64 {
	if s.HasPosition {
		return s.Position[2]
	}
	if s.HasLocation {
		return s.Location
	}
	return 0
}
