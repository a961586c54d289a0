package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lungprep/internal/models"
	"lungprep/pkg/store"
	"lungprep/pkg/visualization"
)

// Result reports the outcome for one patient in a batch run.
type Result struct {
	Patient  models.Patient
	Err      error
	Duration time.Duration
}

// Run processes patients concurrently with a bounded worker pool and
// persists each study under the configured output directory. One patient's
// failure is recorded in its Result and does not abort the batch; a
// cancelled context stops workers at the next stage boundary.
func (p *Pipeline) Run(ctx context.Context, patients []models.Patient) []Result {
	workers := p.cfg.Processing.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(patients) {
		workers = len(patients)
	}

	jobs := make(chan int, len(patients))
	results := make([]Result, len(patients))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				err := p.processAndSave(ctx, patients[i])
				results[i] = Result{
					Patient:  patients[i],
					Err:      err,
					Duration: time.Since(start),
				}
			}
		}()
	}

	for i := range patients {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (p *Pipeline) processAndSave(ctx context.Context, patient models.Patient) error {
	study, err := p.ProcessPatient(ctx, patient)
	if err != nil {
		return err
	}
	return p.SaveStudy(study)
}

// SaveStudy persists all grids of a study under <output dir>/<patient id>,
// plus slice previews when enabled.
func (p *Pipeline) SaveStudy(study *models.Study) error {
	dir := filepath.Join(p.cfg.Output.Dir, study.PatientID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := store.Write(filepath.Join(dir, "CT.vol"), study.CT, "ct"); err != nil {
		return err
	}
	if err := store.Write(filepath.Join(dir, "PET.vol"), study.PET, "pet"); err != nil {
		return err
	}
	if err := store.Write(filepath.Join(dir, "tumor.vol"), study.Tumor, "tumor"); err != nil {
		return err
	}
	if err := store.Write(filepath.Join(dir, "lung.vol"), study.Lung, "lung"); err != nil {
		return err
	}
	if study.Normalized != nil {
		if err := store.Write(filepath.Join(dir, "CT_norm.vol"), study.Normalized, "ct-normalized"); err != nil {
			return err
		}
	}

	if p.cfg.Output.SavePreviews {
		viewer, err := visualization.NewViewer(study.CT, study.Lung, visualization.LungWindow)
		if err != nil {
			return err
		}
		if err := viewer.SaveSliceSequence("z", filepath.Join(dir, "previews")); err != nil {
			return fmt.Errorf("failed to save previews: %w", err)
		}
	}
	return nil
}
