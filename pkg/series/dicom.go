package series

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"lungprep/pkg/hounsfield"
)

var (
	ctPattern  = regexp.MustCompile(`\.dcm$`)
	petPattern = regexp.MustCompile(`^IM_[0-9]+$`)
)

// LoadCT loads the CT series (.dcm files) from a patient directory.
func LoadCT(dir string) (*Series, error) {
	return ReadDir(dir, ctPattern)
}

// LoadPET loads the PET series (extensionless IM_<n> files) from a patient
// directory.
func LoadPET(dir string) (*Series, error) {
	return ReadDir(dir, petPattern)
}

// ReadDir parses every file in dir whose name matches pattern and assembles
// the resulting slices into a Series.
func ReadDir(dir string, pattern *regexp.Regexp) (*Series, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read series directory: %w", err)
	}

	var slices []SliceMeta
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		meta, err := readSliceFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read slice %s: %w", entry.Name(), err)
		}
		slices = append(slices, meta)
	}
	return assemble(dir, slices)
}

// readSliceFile extracts the metadata and stored pixel values from a single
// DICOM instance.
func readSliceFile(path string) (SliceMeta, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return SliceMeta{}, err
	}

	meta := SliceMeta{File: filepath.Base(path)}

	if pos, ok := floatsOf(ds, tag.ImagePositionPatient); ok && len(pos) == 3 {
		copy(meta.Position[:], pos)
		meta.HasPosition = true
	}
	if loc, ok := floatsOf(ds, tag.SliceLocation); ok && len(loc) == 1 {
		meta.Location = loc[0]
		meta.HasLocation = true
	}
	if th, ok := floatsOf(ds, tag.SliceThickness); ok && len(th) == 1 {
		meta.Thickness = th[0]
		meta.HasThickness = true
	}

	spacing, ok := floatsOf(ds, tag.PixelSpacing)
	if !ok || len(spacing) != 2 {
		return SliceMeta{}, fmt.Errorf("missing or malformed PixelSpacing")
	}
	meta.PixelSpacing = [2]float64{spacing[0], spacing[1]}

	rows, ok := intsOf(ds, tag.Rows)
	if !ok || len(rows) != 1 {
		return SliceMeta{}, fmt.Errorf("missing Rows")
	}
	cols, ok := intsOf(ds, tag.Columns)
	if !ok || len(cols) != 1 {
		return SliceMeta{}, fmt.Errorf("missing Columns")
	}
	meta.Rows, meta.Cols = rows[0], cols[0]

	// Rescale defaults to identity when the tags are absent (some PET
	// exports omit them).
	meta.Rescale = hounsfield.Rescale{Slope: 1, Intercept: 0}
	if slope, ok := floatsOf(ds, tag.RescaleSlope); ok && len(slope) == 1 {
		meta.Rescale.Slope = slope[0]
	}
	if icept, ok := floatsOf(ds, tag.RescaleIntercept); ok && len(icept) == 1 {
		meta.Rescale.Intercept = icept[0]
	}

	pixels, err := readPixels(ds, meta.Rows, meta.Cols)
	if err != nil {
		return SliceMeta{}, err
	}
	meta.Pixels = pixels
	return meta, nil
}

// readPixels decodes the first frame of the PixelData element into stored
// values. Frames are decoded through the library's grayscale image path, so
// stored values arrive as unsigned 16-bit; signed acquisitions are handled
// downstream by the rescale intercept.
func readPixels(ds dicom.Dataset, rows, cols int) ([]float64, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("missing PixelData: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("PixelData has no frames")
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != cols || bounds.Dy() != rows {
		return nil, fmt.Errorf("frame is %dx%d, expected %dx%d",
			bounds.Dx(), bounds.Dy(), cols, rows)
	}

	pixels := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			gray := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			pixels[y*cols+x] = float64(gray.Y)
		}
	}
	return pixels, nil
}

// floatsOf reads a tag whose value is a list of decimal strings or numbers.
func floatsOf(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, false
	}
	switch v := el.Value.GetValue().(type) {
	case []float64:
		return v, true
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	case []int:
		out := make([]float64, 0, len(v))
		for _, n := range v {
			out = append(out, float64(n))
		}
		return out, true
	}
	return nil, false
}

// intsOf reads a tag whose value is a list of integers.
func intsOf(ds dicom.Dataset, t tag.Tag) ([]int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, false
	}
	v, ok := el.Value.GetValue().([]int)
	return v, ok
}
