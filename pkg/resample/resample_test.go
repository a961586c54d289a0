package resample

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"lungprep/pkg/volume"
)

func randomGrid(t *testing.T, dims [3]int, spacing volume.Spacing, rng *rand.Rand) *volume.Grid {
	t.Helper()
	g, err := volume.New(dims, spacing)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	data := g.Data()
	for i := range data {
		data[i] = float64(rng.Intn(2400) - 1000)
	}
	return g
}

func TestResampleShapeAndSpacing(t *testing.T) {
	g, _ := volume.New([3]int{4, 4, 4}, volume.Spacing{2.5, 0.5, 0.5})

	out, achieved, err := Resample(g, Isotropic, Continuous)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if dims := out.Dims(); dims != [3]int{10, 2, 2} {
		t.Errorf("Resampled dims = %v, want [10 2 2]", dims)
	}
	want := volume.Spacing{1, 1, 1}
	for axis := range achieved {
		if math.Abs(achieved[axis]-want[axis]) > 1e-9 {
			t.Errorf("Achieved spacing axis %d = %v, want %v", axis, achieved[axis], want[axis])
		}
	}
	if out.Spacing() != achieved {
		t.Error("Output grid spacing does not match achieved spacing")
	}
}

func TestResampleExtentPreservation(t *testing.T) {
	// |newShape*achieved - oldShape*original| <= achieved per axis.
	rng := rand.New(rand.NewSource(7))
	spacings := []volume.Spacing{
		{2.5, 0.976562, 0.976562},
		{3.27, 1.17, 1.17},
		{0.8, 0.8, 0.8},
		{5, 0.33, 2.9},
	}
	for _, sp := range spacings {
		g := randomGrid(t, [3]int{9, 13, 11}, sp, rng)
		out, achieved, err := Resample(g, Isotropic, Continuous)
		if err != nil {
			t.Fatalf("Resample failed for spacing %v: %v", sp, err)
		}
		oldExt := g.PhysicalExtent()
		newExt := out.PhysicalExtent()
		for axis := range oldExt {
			if diff := math.Abs(newExt[axis] - oldExt[axis]); diff > achieved[axis]+1e-9 {
				t.Errorf("Spacing %v axis %d: extent drift %.4f exceeds voxel width %.4f",
					sp, axis, diff, achieved[axis])
			}
		}
	}
}

func TestNearestPreservesLabelSet(t *testing.T) {
	g, _ := volume.New([3]int{5, 5, 5}, volume.Spacing{2, 2, 2})
	// Three labels, no in-between values allowed after resampling.
	for z := 0; z < 5; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				g.Set(z, y, x, float64((z+y+x)%3*7))
			}
		}
	}

	out, _, err := Resample(g, Isotropic, Nearest)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	allowed := map[float64]bool{0: true, 7: true, 14: true}
	for _, v := range out.Data() {
		if !allowed[v] {
			t.Fatalf("Nearest mode produced value %v not present in source", v)
		}
	}
}

func TestContinuousStaysWithinSourceRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	g := randomGrid(t, [3]int{6, 7, 8}, volume.Spacing{3.1, 0.7, 0.7}, rng)

	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data() {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}

	out, _, err := Resample(g, Isotropic, Continuous)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	for _, v := range out.Data() {
		if v < min-1e-9 || v > max+1e-9 {
			t.Fatalf("Trilinear output %v overshoots source range [%v, %v]", v, min, max)
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := randomGrid(t, [3]int{4, 4, 4}, volume.Spacing{1, 1, 1}, rng)

	out, achieved, err := Resample(g, Isotropic, Continuous)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if achieved != g.Spacing() {
		t.Errorf("Identity resample changed spacing: %v", achieved)
	}
	for i, v := range out.Data() {
		if v != g.Data()[i] {
			t.Fatalf("Identity resample changed voxel %d: %v != %v", i, v, g.Data()[i])
		}
	}
}

func TestResampleRejectsNonPositiveSpacing(t *testing.T) {
	g, _ := volume.New([3]int{2, 2, 2}, volume.Spacing{1, 1, 1})

	_, _, err := Resample(g, volume.Spacing{1, 0, 1}, Continuous)
	var spacingErr *volume.NonPositiveSpacingError
	if !errors.As(err, &spacingErr) {
		t.Fatalf("Expected NonPositiveSpacingError, got %v", err)
	}
}
