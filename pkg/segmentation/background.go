package segmentation

// BackgroundLabelPicker selects the component label treated as exterior air
// in a labeled volume. The pipeline marks every voxel carrying the picked
// label as definitely outside the patient's body.
type BackgroundLabelPicker interface {
	Pick(labels []int32, dims [3]int) int32
}

// CornerPicker returns the label of the voxel at index (0, 0, 0). This
// assumes the corner voxel always lies outside the body, which holds for
// standard-field-of-view chest CT but breaks on tightly cropped scans or
// when a scanner tray splits the surrounding air.
type CornerPicker struct{}

// Pick implements BackgroundLabelPicker.
func (CornerPicker) Pick(labels []int32, dims [3]int) int32 {
	return labels[0]
}

// CornerVotePicker samples all eight corner voxels and returns the most
// common label among them, ties resolving to the smallest label. More
// resistant than CornerPicker to trays or padding that cut the exterior air
// in half.
type CornerVotePicker struct{}

// Pick implements BackgroundLabelPicker.
func (CornerVotePicker) Pick(labels []int32, dims [3]int) int32 {
	nz, ny, nx := dims[0], dims[1], dims[2]
	votes := make(map[int32]int, 8)
	for _, z := range []int{0, nz - 1} {
		for _, y := range []int{0, ny - 1} {
			for _, x := range []int{0, nx - 1} {
				votes[labels[(z*ny+y)*nx+x]]++
			}
		}
	}
	var best int32
	bestVotes := -1
	for label, n := range votes {
		if n > bestVotes || (n == bestVotes && label < best) {
			best = label
			bestVotes = n
		}
	}
	return best
}
