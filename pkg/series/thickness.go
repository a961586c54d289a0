package series

import (
	"fmt"
	"math"
)

// Slice thickness is not reliably present as a tag, so it is resolved by an
// explicit ordered chain of named strategies. Each strategy either produces
// a positive thickness or defers to the next; when the chain is exhausted
// the series is malformed. Nothing is swallowed silently: the winning
// strategy's name is recorded on the Series.

type thicknessStrategy struct {
	name    string
	resolve func(slices []SliceMeta) (float64, bool)
}

var thicknessChain = []thicknessStrategy{
	{"position-delta", positionDelta},
	{"location-delta", locationDelta},
	{"thickness-tag", thicknessTag},
}

// resolveThickness runs the fallback chain over the sorted slices.
func resolveThickness(dir string, slices []SliceMeta) (float64, string, error) {
	for _, s := range thicknessChain {
		if t, ok := s.resolve(slices); ok {
			return t, s.name, nil
		}
	}
	return 0, "", &MalformedSeriesError{Dir: dir,
		Reason: fmt.Sprintf("cannot resolve slice thickness after %d strategies", len(thicknessChain))}
}

// positionDelta derives thickness from the stacking-axis distance between
// the first two slices.
func positionDelta(slices []SliceMeta) (float64, bool) {
	if !slices[0].HasPosition || !slices[1].HasPosition {
		return 0, false
	}
	d := math.Abs(slices[0].Position[2] - slices[1].Position[2])
	return d, d > 0
}

// locationDelta derives thickness from the SliceLocation delta of the first
// two slices.
func locationDelta(slices []SliceMeta) (float64, bool) {
	if !slices[0].HasLocation || !slices[1].HasLocation {
		return 0, false
	}
	d := math.Abs(slices[0].Location - slices[1].Location)
	return d, d > 0
}

// thicknessTag falls back to the embedded SliceThickness metadata field.
func thicknessTag(slices []SliceMeta) (float64, bool) {
	s := slices[0]
	return s.Thickness, s.HasThickness && s.Thickness > 0
}
