package segmentation

import (
	"math/rand"
	"testing"
)

func countSet(m []uint8) int {
	n := 0
	for _, v := range m {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestDilateSingleVoxel(t *testing.T) {
	dims := [3]int{7, 7, 7}
	src := make([]uint8, 7*7*7)
	src[(3*7+3)*7+3] = 1

	out := dilateCube(src, dims, 2)

	// A cube of half-width 2 around the seed: 5^3 voxels.
	if got := countSet(out); got != 125 {
		t.Errorf("Dilated count = %d, want 125", got)
	}
	if out[(1*7+1)*7+1] != 1 {
		t.Error("Chebyshev-distance-2 voxel not set")
	}
	if out[0] != 0 {
		t.Error("Corner voxel set beyond structuring element reach")
	}
}

func TestDilationMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	dims := [3]int{10, 11, 12}
	for trial := 0; trial < 5; trial++ {
		src := make([]uint8, dims[0]*dims[1]*dims[2])
		for i := range src {
			if rng.Float64() < 0.2 {
				src[i] = 1
			}
		}
		out := dilateCube(src, dims, 1+trial%3)
		if countSet(out) < countSet(src) {
			t.Fatal("Dilation removed positive voxels")
		}
		for i := range src {
			if src[i] == 1 && out[i] == 0 {
				t.Fatal("Dilation cleared an input voxel")
			}
		}
	}
}

func TestErodeBorderCountsAsBackground(t *testing.T) {
	dims := [3]int{7, 7, 7}
	src := make([]uint8, 7*7*7)
	for i := range src {
		src[i] = 1
	}

	out := erodeCube(src, dims, 1)

	// Only the interior 5^3 survives; the border shell erodes.
	if got := countSet(out); got != 125 {
		t.Errorf("Eroded count = %d, want 125", got)
	}
	if out[0] != 0 {
		t.Error("Border voxel survived erosion")
	}
	if out[(3*7+3)*7+3] != 1 {
		t.Error("Center voxel eroded")
	}
}

func TestClosingFillsSmallHole(t *testing.T) {
	dims := [3]int{9, 9, 9}
	src := make([]uint8, 9*9*9)
	for i := range src {
		src[i] = 1
	}
	center := (4*9+4)*9 + 4
	src[center] = 0

	out := closeCube(src, dims, 1)
	if out[center] != 1 {
		t.Error("Single-voxel hole survived closing")
	}
}

func TestClosingKeepsLargeHole(t *testing.T) {
	dims := [3]int{15, 15, 15}
	src := make([]uint8, 15*15*15)
	for i := range src {
		src[i] = 1
	}
	// 5x5x5 hole, larger than the structuring element.
	for z := 5; z < 10; z++ {
		for y := 5; y < 10; y++ {
			for x := 5; x < 10; x++ {
				src[(z*15+y)*15+x] = 0
			}
		}
	}

	out := closeCube(src, dims, 1)
	if out[(7*15+7)*15+7] != 0 {
		t.Error("Hole larger than the structuring element was filled")
	}
}

func TestMorphologyZeroRadiusIsIdentity(t *testing.T) {
	dims := [3]int{3, 3, 3}
	src := make([]uint8, 27)
	src[13] = 1

	for name, fn := range map[string]func([]uint8, [3]int, int) []uint8{
		"dilate": dilateCube,
		"erode":  erodeCube,
		"close":  closeCube,
	} {
		out := fn(src, dims, 0)
		for i := range src {
			if out[i] != src[i] {
				t.Errorf("%s with radius 0 changed voxel %d", name, i)
			}
		}
	}
}
