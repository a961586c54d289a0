package segmentation

// Connected-component labeling over small-integer grids. Voxels with value 0
// are background and keep label 0. Two voxels belong to the same component
// only when they hold the same source value and are linked by a face-sharing
// path: 6-connectivity in 3D, 4-connectivity within a 2D slice.

// label3D labels the components of vals (dims nz, ny, nx) and returns the
// label volume plus the number of components found. Labels start at 1.
func label3D(vals []int8, dims [3]int) ([]int32, int32) {
	nz, ny, nx := dims[0], dims[1], dims[2]
	labels := make([]int32, len(vals))
	queue := make([]int32, 0, 1024)
	var next int32

	for start := range vals {
		if vals[start] == 0 || labels[start] != 0 {
			continue
		}
		next++
		v := vals[start]
		labels[start] = next
		queue = append(queue[:0], int32(start))

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			i := int(idx)
			x := i % nx
			y := (i / nx) % ny
			z := i / (nx * ny)

			if x > 0 {
				queue = visit(vals, labels, queue, i-1, v, next)
			}
			if x < nx-1 {
				queue = visit(vals, labels, queue, i+1, v, next)
			}
			if y > 0 {
				queue = visit(vals, labels, queue, i-nx, v, next)
			}
			if y < ny-1 {
				queue = visit(vals, labels, queue, i+nx, v, next)
			}
			if z > 0 {
				queue = visit(vals, labels, queue, i-nx*ny, v, next)
			}
			if z < nz-1 {
				queue = visit(vals, labels, queue, i+nx*ny, v, next)
			}
		}
	}
	return labels, next
}

// labelSlice labels a single 2D slice (nu rows of nv values) with
// 4-connectivity.
func labelSlice(vals []int8, nu, nv int) ([]int32, int32) {
	labels := make([]int32, len(vals))
	queue := make([]int32, 0, 256)
	var next int32

	for start := range vals {
		if vals[start] == 0 || labels[start] != 0 {
			continue
		}
		next++
		v := vals[start]
		labels[start] = next
		queue = append(queue[:0], int32(start))

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			i := int(idx)
			c := i % nv
			r := i / nv

			if c > 0 {
				queue = visit(vals, labels, queue, i-1, v, next)
			}
			if c < nv-1 {
				queue = visit(vals, labels, queue, i+1, v, next)
			}
			if r > 0 {
				queue = visit(vals, labels, queue, i-nv, v, next)
			}
			if r < nu-1 {
				queue = visit(vals, labels, queue, i+nv, v, next)
			}
		}
	}
	return labels, next
}

func visit(vals []int8, labels []int32, queue []int32, i int, v int8, label int32) []int32 {
	if labels[i] == 0 && vals[i] == v {
		labels[i] = label
		queue = append(queue, int32(i))
	}
	return queue
}

// largestLabel returns the label with the highest voxel count, ignoring
// background (label 0). Ties resolve to the smallest label. Returns 0 when
// no component exists.
func largestLabel(labels []int32, count int32) int32 {
	if count == 0 {
		return 0
	}
	counts := make([]int64, count+1)
	for _, l := range labels {
		counts[l]++
	}
	best := int32(0)
	var bestCount int64
	for l := int32(1); l <= count; l++ {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	return best
}
