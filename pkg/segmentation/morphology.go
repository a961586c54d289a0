package segmentation

// Binary morphology with cubic structuring elements. A cube of half-width r
// is separable into three 1D passes (one per axis), which keeps closing and
// dilation tractable on isotropic CT volumes with hundreds of slices.
// Outside the volume counts as background: dilation never reaches in from
// the border, and erosion removes foreground within r of it, matching the
// border handling of the usual ndimage implementations.

// dilateCube sets every voxel within Chebyshev distance r of a foreground
// voxel. The result always contains the input.
func dilateCube(src []uint8, dims [3]int, r int) []uint8 {
	if r <= 0 {
		out := make([]uint8, len(src))
		copy(out, src)
		return out
	}
	out := src
	for axis := 0; axis < 3; axis++ {
		out = axisPass(out, dims, axis, r, dilateLine)
	}
	return out
}

// erodeCube keeps only voxels whose full r-neighborhood cube is foreground
// and lies inside the volume.
func erodeCube(src []uint8, dims [3]int, r int) []uint8 {
	if r <= 0 {
		out := make([]uint8, len(src))
		copy(out, src)
		return out
	}
	out := src
	for axis := 0; axis < 3; axis++ {
		out = axisPass(out, dims, axis, r, erodeLine)
	}
	return out
}

// closeCube is dilation followed by erosion; it seals gaps and holes
// narrower than the structuring element.
func closeCube(src []uint8, dims [3]int, r int) []uint8 {
	return erodeCube(dilateCube(src, dims, r), dims, r)
}

// axisPass applies a 1D line filter along the given axis.
func axisPass(src []uint8, dims [3]int, axis, r int, filter func(line, out []uint8, r int)) []uint8 {
	n := dims[axis]
	line := make([]uint8, n)
	lineOut := make([]uint8, n)
	dst := make([]uint8, len(src))

	stride, outerA, outerB := lineGeometry(dims, axis)
	for a := 0; a < outerA; a++ {
		for b := 0; b < outerB; b++ {
			base := lineBase(dims, axis, a, b)
			for i := 0; i < n; i++ {
				line[i] = src[base+i*stride]
			}
			filter(line, lineOut, r)
			for i := 0; i < n; i++ {
				dst[base+i*stride] = lineOut[i]
			}
		}
	}
	return dst
}

// lineGeometry returns the flat stride along axis and the extents of the two
// remaining axes.
func lineGeometry(dims [3]int, axis int) (stride, outerA, outerB int) {
	switch axis {
	case 0:
		return dims[1] * dims[2], dims[1], dims[2]
	case 1:
		return dims[2], dims[0], dims[2]
	default:
		return 1, dims[0], dims[1]
	}
}

// lineBase returns the flat index of element 0 of the (a, b) line along axis.
func lineBase(dims [3]int, axis, a, b int) int {
	switch axis {
	case 0:
		return a*dims[2] + b
	case 1:
		return a*dims[1]*dims[2] + b
	default:
		return a*dims[1]*dims[2] + b*dims[2]
	}
}

// dilateLine is a binary max filter of radius r; out[i] is 1 when any
// foreground element lies within r of i.
func dilateLine(line, out []uint8, r int) {
	n := len(line)
	const far = 1 << 30

	dist := far
	for i := 0; i < n; i++ {
		if line[i] != 0 {
			dist = 0
		} else if dist < far {
			dist++
		}
		if dist <= r {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	dist = far
	for i := n - 1; i >= 0; i-- {
		if line[i] != 0 {
			dist = 0
		} else if dist < far {
			dist++
		}
		if dist <= r {
			out[i] = 1
		}
	}
}

// erodeLine is a binary min filter of radius r; positions outside the line
// count as background, so the first and last r elements always erode.
func erodeLine(line, out []uint8, r int) {
	n := len(line)

	// Distance to the nearest background element at or before i, counting a
	// virtual background element at index -1.
	fwd := 0
	for i := 0; i < n; i++ {
		fwd++
		if line[i] == 0 {
			fwd = 0
		}
		if line[i] != 0 && fwd > r {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	bwd := 0
	for i := n - 1; i >= 0; i-- {
		bwd++
		if line[i] == 0 {
			bwd = 0
		}
		if bwd <= r {
			out[i] = 0
		}
	}
}
