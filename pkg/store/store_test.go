package store

import (
	"os"
	"path/filepath"
	"testing"

	"lungprep/pkg/volume"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CT.vol")

	g, err := volume.New([3]int{2, 3, 4}, volume.Spacing{1, 0.97, 0.97})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	g.Set(0, 0, 0, -1024)
	g.Set(1, 2, 3, 400)

	if err := Write(path, g, "ct"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, meta, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if meta.Kind != "ct" {
		t.Errorf("Meta kind = %q, want ct", meta.Kind)
	}
	if loaded.Dims() != g.Dims() {
		t.Errorf("Dims = %v, want %v", loaded.Dims(), g.Dims())
	}
	if loaded.Spacing() != g.Spacing() {
		t.Errorf("Spacing = %v, want %v", loaded.Spacing(), g.Spacing())
	}
	if loaded.At(0, 0, 0) != -1024 || loaded.At(1, 2, 3) != 400 {
		t.Error("Voxel values did not survive the round trip")
	}
}

func TestReadRejectsTruncatedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lung.vol")

	g, _ := volume.New([3]int{2, 2, 2}, volume.Spacing{1, 1, 1})
	if err := Write(path, g, "lung"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := os.Truncate(path, 7); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if _, _, err := Read(path); err == nil {
		t.Error("Expected error for truncated payload")
	}
}

func TestReadMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.vol")
	if err := os.WriteFile(path, make([]byte, 4), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, _, err := Read(path); err == nil {
		t.Error("Expected error for missing sidecar")
	}
}
