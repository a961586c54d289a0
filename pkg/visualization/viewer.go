// Package visualization renders preview images of processed volumes: a
// windowed grayscale view of the CT with an optional mask overlay, one PNG
// per slice. Previews are a debugging aid, not a pipeline output.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lungprep/pkg/volume"
)

// Window is an intensity window in HU: values at or below Low render black,
// values at or above High render white.
type Window struct {
	Low  float64
	High float64
}

// LungWindow is a wide window suited to inspecting lung fields.
var LungWindow = Window{Low: -1350, High: 150}

// Viewer renders axial, coronal, or sagittal slices of an intensity volume
// with an optional mask overlay.
type Viewer struct {
	grid   *volume.Grid
	mask   *volume.Grid
	window Window
}

// NewViewer creates a viewer for grid. mask may be nil; when present it must
// have the same dimensions and is tinted over the grayscale rendering.
func NewViewer(grid, mask *volume.Grid, window Window) (*Viewer, error) {
	if mask != nil && mask.Dims() != grid.Dims() {
		return nil, fmt.Errorf("mask dims %v do not match volume dims %v",
			mask.Dims(), grid.Dims())
	}
	if window.High <= window.Low {
		return nil, fmt.Errorf("invalid window [%v, %v]", window.Low, window.High)
	}
	return &Viewer{grid: grid, mask: mask, window: window}, nil
}

// RenderSlice renders one slice along the given axis ("z", "y", or "x",
// where z is the stacking axis) with a slice-index label in the top-left
// corner.
func (v *Viewer) RenderSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	dims := v.grid.Dims()

	var width, height int
	var voxel func(px, py int) (z, y, x int)
	switch axis {
	case "z", "Z":
		if position >= dims[0] {
			return nil, fmt.Errorf("position %d exceeds slice count %d", position, dims[0])
		}
		width, height = dims[2], dims[1]
		voxel = func(px, py int) (int, int, int) { return position, py, px }
	case "y", "Y":
		if position >= dims[1] {
			return nil, fmt.Errorf("position %d exceeds height %d", position, dims[1])
		}
		width, height = dims[2], dims[0]
		voxel = func(px, py int) (int, int, int) { return py, position, px }
	case "x", "X":
		if position >= dims[2] {
			return nil, fmt.Errorf("position %d exceeds width %d", position, dims[2])
		}
		width, height = dims[1], dims[0]
		voxel = func(px, py int) (int, int, int) { return py, px, position }
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scale := 255 / (v.window.High - v.window.Low)
	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			z, y, x := voxel(px, py)
			g := (v.grid.At(z, y, x) - v.window.Low) * scale
			if g < 0 {
				g = 0
			} else if g > 255 {
				g = 255
			}
			gray := uint8(g)
			c := color.RGBA{gray, gray, gray, 255}
			if v.mask != nil && v.mask.At(z, y, x) != 0 {
				// Tint masked voxels toward red, keeping the underlying
				// intensity readable.
				c.R = uint8((int(gray) + 255) / 2)
				c.G = gray / 2
				c.B = gray / 2
			}
			img.Set(px, py, c)
		}
	}

	drawLabel(img, fmt.Sprintf("%s=%d", axis, position))
	return img, nil
}

// drawLabel writes text in the top-left corner using the fixed-width
// basicfont face.
func drawLabel(img *image.RGBA, text string) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 255, 0, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, 12),
	}
	drawer.DrawString(text)
}

// SaveSlice writes an image as PNG.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

// SaveSliceSequence renders and saves every slice along the given axis.
func (v *Viewer) SaveSliceSequence(axis, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	dims := v.grid.Dims()
	var maxPos int
	switch axis {
	case "z", "Z":
		maxPos = dims[0]
	case "y", "Y":
		maxPos = dims[1]
	case "x", "X":
		maxPos = dims[2]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.RenderSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
