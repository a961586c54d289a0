package volume

import (
	"errors"
	"math"
	"testing"
)

func TestNewGrid(t *testing.T) {
	g, err := New([3]int{2, 3, 4}, Spacing{1, 1, 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if g.Len() != 24 {
		t.Errorf("Expected 24 voxels, got %d", g.Len())
	}

	g.Set(1, 2, 3, -500)
	if got := g.At(1, 2, 3); got != -500 {
		t.Errorf("At(1,2,3) = %v, want -500", got)
	}

	// Last voxel must map to the last flat index
	if idx := g.Index(1, 2, 3); idx != 23 {
		t.Errorf("Index(1,2,3) = %d, want 23", idx)
	}
}

func TestNewGridRejectsBadInput(t *testing.T) {
	if _, err := New([3]int{0, 3, 4}, Spacing{1, 1, 1}); err == nil {
		t.Error("Expected error for zero dimension")
	}

	_, err := New([3]int{2, 2, 2}, Spacing{1, -0.5, 1})
	var spacingErr *NonPositiveSpacingError
	if !errors.As(err, &spacingErr) {
		t.Fatalf("Expected NonPositiveSpacingError, got %v", err)
	}
	if spacingErr.Axis != 1 {
		t.Errorf("Expected offending axis 1, got %d", spacingErr.Axis)
	}
}

func TestSpacingValidate(t *testing.T) {
	if err := (Spacing{1, 2, 3}).Validate(); err != nil {
		t.Errorf("Valid spacing rejected: %v", err)
	}
	if err := (Spacing{1, 2, 0}).Validate(); err == nil {
		t.Error("Zero spacing accepted")
	}
}

func TestFromDataLengthMismatch(t *testing.T) {
	if _, err := FromData(make([]float64, 7), [3]int{2, 2, 2}, Spacing{1, 1, 1}); err == nil {
		t.Error("Expected error for mismatched data length")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g, _ := New([3]int{2, 2, 2}, Spacing{1, 1, 1})
	g.Set(0, 0, 0, 42)

	c := g.Clone()
	c.Set(0, 0, 0, -42)

	if g.At(0, 0, 0) != 42 {
		t.Error("Mutating clone changed the original grid")
	}
}

func TestPhysicalExtent(t *testing.T) {
	g, _ := New([3]int{10, 20, 30}, Spacing{2.5, 0.97, 0.97})
	ext := g.PhysicalExtent()
	want := [3]float64{25, 19.4, 29.1}
	for axis := range ext {
		if math.Abs(ext[axis]-want[axis]) > 1e-9 {
			t.Errorf("Extent axis %d = %v, want %v", axis, ext[axis], want[axis])
		}
	}
}

func TestSummarize(t *testing.T) {
	g, _ := New([3]int{1, 2, 2}, Spacing{1, 1, 1})
	g.Set(0, 0, 0, -1000)
	g.Set(0, 0, 1, 0)
	g.Set(0, 1, 0, 400)
	g.Set(0, 1, 1, 600)

	s := Summarize(g)
	if s.Min != -1000 || s.Max != 600 {
		t.Errorf("Summary min/max = %v/%v, want -1000/600", s.Min, s.Max)
	}
	if s.Mean != 0 {
		t.Errorf("Summary mean = %v, want 0", s.Mean)
	}
	if s.Positive != 2 {
		t.Errorf("Summary positive = %d, want 2", s.Positive)
	}
}
