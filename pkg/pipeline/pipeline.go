// Package pipeline sequences the per-patient preprocessing stages and runs
// independent patients concurrently. Every stage is a pure function from
// owned input grids to owned output grids; nothing is shared between
// patients, which is what makes the batch embarrassingly parallel.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"lungprep/internal/models"
	"lungprep/pkg/config"
	"lungprep/pkg/hounsfield"
	"lungprep/pkg/normalize"
	"lungprep/pkg/nrrd"
	"lungprep/pkg/resample"
	"lungprep/pkg/segmentation"
	"lungprep/pkg/series"
	"lungprep/pkg/volume"
)

// Loader supplies the raw per-patient inputs. The disk implementation reads
// DICOM series and the NRRD tumor mask; tests substitute synthetic volumes.
type Loader interface {
	LoadCT(dir string) (*series.Series, error)
	LoadPET(dir string) (*series.Series, error)
	LoadTumor(dir string) (*volume.Grid, error)
}

// DiskLoader reads patient data from the raw directory layout: .dcm files
// for CT, IM_<n> files for PET, and a *GTV.nrrd tumor segmentation.
type DiskLoader struct{}

var tumorPattern = regexp.MustCompile(`GTV\.nrrd$`)

func (DiskLoader) LoadCT(dir string) (*series.Series, error)  { return series.LoadCT(dir) }
func (DiskLoader) LoadPET(dir string) (*series.Series, error) { return series.LoadPET(dir) }

func (DiskLoader) LoadTumor(dir string) (*volume.Grid, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && tumorPattern.MatchString(entry.Name()) {
			return nrrd.ReadFile(filepath.Join(dir, entry.Name()))
		}
	}
	return nil, fmt.Errorf("no GTV.nrrd tumor segmentation in %s", dir)
}

// Pipeline converts raw patient scans into processed studies.
type Pipeline struct {
	cfg *config.Config

	// Loader may be replaced before the first use.
	Loader Loader
}

// New creates a pipeline using the disk loader.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, Loader: DiskLoader{}}
}

// ProcessPatient runs the full stage sequence for one patient: load,
// Hounsfield conversion, isotropic resampling, lung segmentation, and
// optional normalization. Cancellation is checked between stages, never
// mid-stage, so an abandoned patient leaves no partial shared state.
func (p *Pipeline) ProcessPatient(ctx context.Context, patient models.Patient) (*models.Study, error) {
	cfg := p.cfg
	axis := cfg.Processing.StackingAxis
	target := volume.Spacing(cfg.Processing.TargetSpacing)

	p.logf("[%s] loading data...", patient.ID)
	ct, err := p.Loader.LoadCT(patient.Dir)
	if err != nil {
		return nil, fmt.Errorf("CT: %w", err)
	}
	pet, err := p.Loader.LoadPET(patient.Dir)
	if err != nil {
		return nil, fmt.Errorf("PET: %w", err)
	}
	tumor, err := p.Loader.LoadTumor(patient.Dir)
	if err != nil {
		return nil, fmt.Errorf("tumor mask: %w", err)
	}
	if err := stageGate(ctx); err != nil {
		return nil, err
	}

	p.logf("[%s] converting to physical units...", patient.ID)
	ctHU, err := hounsfield.Convert(ct.Grid, ct.Rescales, axis)
	if err != nil {
		return nil, fmt.Errorf("CT conversion: %w", err)
	}
	petPhys, err := hounsfield.Convert(pet.Grid, pet.Rescales, axis)
	if err != nil {
		return nil, fmt.Errorf("PET conversion: %w", err)
	}
	if err := stageGate(ctx); err != nil {
		return nil, err
	}

	p.logf("[%s] resampling to %v mm...", patient.ID, target)
	ctIso, ctSpacing, err := resample.Resample(ctHU, target, resample.Continuous)
	if err != nil {
		return nil, fmt.Errorf("CT resample: %w", err)
	}
	petIso, _, err := resample.Resample(petPhys, target, resample.Continuous)
	if err != nil {
		return nil, fmt.Errorf("PET resample: %w", err)
	}
	tumorIso, _, err := resample.Resample(tumor, target, resample.Nearest)
	if err != nil {
		return nil, fmt.Errorf("tumor resample: %w", err)
	}
	if err := stageGate(ctx); err != nil {
		return nil, err
	}

	p.logf("[%s] segmenting lung air space (achieved spacing %v)...", patient.ID, ctSpacing)
	lung, err := p.segmenter().Segment(ctIso)
	if err != nil {
		return nil, fmt.Errorf("lung segmentation: %w", err)
	}
	if err := stageGate(ctx); err != nil {
		return nil, err
	}

	study := &models.Study{
		PatientID:       patient.ID,
		CT:              ctIso,
		PET:             petIso,
		Tumor:           tumorIso,
		Lung:            lung,
		ThicknessSource: ct.ThicknessSource,
	}

	if cfg.Normalization.Enabled {
		p.logf("[%s] normalizing...", patient.ID)
		norm := normalize.Normalize(ctIso, cfg.Normalization.MinBound, cfg.Normalization.MaxBound)
		if cfg.Normalization.ZeroCenter {
			norm = normalize.ZeroCenter(norm, cfg.Normalization.PixelMean)
		}
		study.Normalized = norm
	}

	if cfg.Output.Verbose {
		fmt.Printf("[%s] CT %v %s\n", patient.ID, ctIso.Dims(), volume.Summarize(ctIso))
		fmt.Printf("[%s] lung mask %s\n", patient.ID, volume.Summarize(lung))
	}
	return study, nil
}

func (p *Pipeline) segmenter() *segmentation.Segmenter {
	seg := segmentation.NewSegmenter()
	seg.FillLungStructures = p.cfg.Segmentation.FillLungStructures
	seg.Axis = p.cfg.Processing.StackingAxis
	seg.AirThreshold = p.cfg.Segmentation.AirThreshold
	seg.ClosingHalfWidth = p.cfg.Segmentation.ClosingHalfWidth
	seg.DilationHalfWidth = p.cfg.Segmentation.DilationHalfWidth
	if p.cfg.Segmentation.CornerVoting {
		seg.Picker = segmentation.CornerVotePicker{}
	}
	return seg
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.cfg.Output.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// stageGate is the cooperative cancellation check between stages.
func stageGate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// DiscoverPatients lists the per-patient subdirectories of parentDir in
// name order.
func DiscoverPatients(parentDir string) ([]models.Patient, error) {
	entries, err := os.ReadDir(parentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read patient directory: %w", err)
	}
	var patients []models.Patient
	for _, entry := range entries {
		if entry.IsDir() {
			patients = append(patients, models.Patient{
				ID:  entry.Name(),
				Dir: filepath.Join(parentDir, entry.Name()),
			})
		}
	}
	return patients, nil
}
