// Package volume provides the shared voxel-grid model used by every stage of
// the preprocessing pipeline: a dense 3D scalar grid with an associated
// physical spacing. Grids are stacking-major (slice index varies slowest),
// matching the axial ordering of CT and PET acquisitions.
package volume

import (
	"fmt"
)

// Spacing is the physical size of a voxel in mm along each axis, ordered to
// match the grid axes (stacking axis first). Every component must be
// strictly positive; spacing is recomputed, never assumed, after resampling.
type Spacing [3]float64

// NonPositiveSpacingError reports a spacing vector with a component that is
// zero or negative.
type NonPositiveSpacingError struct {
	// Spacing is the offending vector.
	Spacing Spacing

	// Axis is the first axis whose component is non-positive.
	Axis int
}

func (e *NonPositiveSpacingError) Error() string {
	return fmt.Sprintf("non-positive spacing %.6g on axis %d (spacing %v)",
		e.Spacing[e.Axis], e.Axis, e.Spacing)
}

// Validate returns a NonPositiveSpacingError if any component is <= 0.
func (s Spacing) Validate() error {
	for axis, v := range s {
		if v <= 0 {
			return &NonPositiveSpacingError{Spacing: s, Axis: axis}
		}
	}
	return nil
}

// Grid is a dense 3D scalar volume. Data is stored as a flat slice in
// stacking-major order: index = (z*ny + y)*nx + x for dims (nz, ny, nx).
// Dimensions are fixed at construction; values are mutable through Set.
type Grid struct {
	data    []float64
	dims    [3]int
	spacing Spacing
}

// New allocates a zero-filled grid with the given dimensions and spacing.
func New(dims [3]int, spacing Spacing) (*Grid, error) {
	for axis, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("non-positive dimension %d on axis %d", d, axis)
		}
	}
	if err := spacing.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		data:    make([]float64, dims[0]*dims[1]*dims[2]),
		dims:    dims,
		spacing: spacing,
	}, nil
}

// FromData wraps an existing flat slice as a grid. The slice is owned by the
// grid afterwards; callers must not retain it. Its length must match the
// product of the dimensions.
func FromData(data []float64, dims [3]int, spacing Spacing) (*Grid, error) {
	g, err := New(dims, spacing)
	if err != nil {
		return nil, err
	}
	if len(data) != len(g.data) {
		return nil, fmt.Errorf("data length %d does not match dims %v (want %d)",
			len(data), dims, len(g.data))
	}
	g.data = data
	return g, nil
}

// Dims returns the grid dimensions as (nz, ny, nx).
func (g *Grid) Dims() [3]int { return g.dims }

// Spacing returns the physical voxel spacing.
func (g *Grid) Spacing() Spacing { return g.spacing }

// Len returns the total number of voxels.
func (g *Grid) Len() int { return len(g.data) }

// Index converts (z, y, x) coordinates to a flat index.
func (g *Grid) Index(z, y, x int) int {
	return (z*g.dims[1]+y)*g.dims[2] + x
}

// At returns the value at (z, y, x).
func (g *Grid) At(z, y, x int) float64 {
	return g.data[g.Index(z, y, x)]
}

// Set stores v at (z, y, x).
func (g *Grid) Set(z, y, x int, v float64) {
	g.data[g.Index(z, y, x)] = v
}

// Data exposes the backing slice for tight loops. The caller must not grow
// or reslice it.
func (g *Grid) Data() []float64 { return g.data }

// Clone returns a deep copy with the same dimensions and spacing.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.data))
	copy(data, g.data)
	return &Grid{data: data, dims: g.dims, spacing: g.spacing}
}

// SliceCount returns the extent along the given axis.
func (g *Grid) SliceCount(axis int) int { return g.dims[axis] }

// PhysicalExtent returns dims*spacing per axis, in mm.
func (g *Grid) PhysicalExtent() [3]float64 {
	var ext [3]float64
	for axis := range ext {
		ext[axis] = float64(g.dims[axis]) * g.spacing[axis]
	}
	return ext
}
