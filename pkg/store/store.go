// Package store persists processed voxel grids. Each volume is written as a
// raw little-endian float32 payload (.vol) next to a YAML sidecar
// (.vol.yaml) describing its dimensions, spacing, and role, so downstream
// tooling can load a grid without guessing its geometry.
package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"lungprep/pkg/volume"
)

// Meta is the sidecar content describing a persisted volume.
type Meta struct {
	// Kind is the role of the volume: "ct", "pet", "tumor", or "lung".
	Kind string `yaml:"kind"`

	// Dims is (slices, rows, cols).
	Dims [3]int `yaml:"dims"`

	// Spacing is the achieved voxel spacing in mm, stacking axis first.
	Spacing [3]float64 `yaml:"spacing"`

	// Format identifies the payload sample encoding.
	Format string `yaml:"format"`
}

const formatFloat32LE = "float32le"

// Write persists g to path (conventionally ending in .vol) with a YAML
// sidecar at path + ".yaml".
func Write(path string, g *volume.Grid, kind string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4*len(g.Data()))
	for i, v := range g.Data() {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("failed to write volume payload: %w", err)
	}

	meta := Meta{
		Kind:    kind,
		Dims:    g.Dims(),
		Spacing: g.Spacing(),
		Format:  formatFloat32LE,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to marshal volume metadata: %w", err)
	}
	if err := os.WriteFile(path+".yaml", data, 0644); err != nil {
		return fmt.Errorf("failed to write volume metadata: %w", err)
	}
	return nil
}

// Read loads a persisted volume and its metadata.
func Read(path string) (*volume.Grid, Meta, error) {
	var meta Meta
	sidecar, err := os.ReadFile(path + ".yaml")
	if err != nil {
		return nil, meta, fmt.Errorf("failed to read volume metadata: %w", err)
	}
	if err := yaml.Unmarshal(sidecar, &meta); err != nil {
		return nil, meta, fmt.Errorf("failed to parse volume metadata: %w", err)
	}
	if meta.Format != formatFloat32LE {
		return nil, meta, fmt.Errorf("unsupported volume format %q", meta.Format)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to read volume payload: %w", err)
	}
	n := meta.Dims[0] * meta.Dims[1] * meta.Dims[2]
	if len(payload) != 4*n {
		return nil, meta, fmt.Errorf("volume payload is %d bytes, expected %d", len(payload), 4*n)
	}

	data := make([]float64, n)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:])))
	}
	g, err := volume.FromData(data, meta.Dims, volume.Spacing(meta.Spacing))
	if err != nil {
		return nil, meta, err
	}
	return g, meta, nil
}
