package normalize

import (
	"testing"

	"lungprep/pkg/volume"
)

func gridOf(t *testing.T, values ...float64) *volume.Grid {
	t.Helper()
	g, err := volume.FromData(values, [3]int{1, 1, len(values)}, volume.Spacing{1, 1, 1})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	return g
}

func TestNormalizeBoundsAndClamping(t *testing.T) {
	g := gridOf(t, -1000, 400, 1000, -2000, -300)

	out := Normalize(g, DefaultMinBound, DefaultMaxBound)

	cases := []struct {
		idx  int
		want float64
	}{
		{0, 0.0}, // min bound
		{1, 1.0}, // max bound
		{2, 1.0}, // clamped above
		{3, 0.0}, // clamped below
		{4, 0.5}, // midpoint of [-1000, 400]
	}
	for _, c := range cases {
		if got := out.Data()[c.idx]; got != c.want {
			t.Errorf("Normalized value %d = %v, want %v", c.idx, got, c.want)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	g := gridOf(t, 200)
	Normalize(g, DefaultMinBound, DefaultMaxBound)
	if g.Data()[0] != 200 {
		t.Error("Normalize mutated its input grid")
	}
}

func TestZeroCenter(t *testing.T) {
	g := gridOf(t, 0.25, 1.0, 0.0)
	out := ZeroCenter(g, DefaultPixelMean)

	want := []float64{0, 0.75, -0.25}
	for i, w := range want {
		if got := out.Data()[i]; got != w {
			t.Errorf("ZeroCentered value %d = %v, want %v", i, got, w)
		}
	}
	if g.Data()[0] != 0.25 {
		t.Error("ZeroCenter mutated its input grid")
	}
}
