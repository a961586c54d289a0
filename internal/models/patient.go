package models

import (
	"lungprep/pkg/volume"
)

// Patient identifies one case to process: a directory holding the CT series,
// the PET series, and the tumor segmentation.
type Patient struct {
	// ID is the patient identifier, taken from the directory name.
	ID string

	// Dir is the absolute or working-directory-relative path to the
	// patient's raw data.
	Dir string
}

// Study is the processed output for one patient: four co-registered,
// shape-matched grids at (approximately) isotropic spacing.
type Study struct {
	PatientID string

	// CT and PET are resampled intensity volumes in physical units.
	CT  *volume.Grid
	PET *volume.Grid

	// Tumor is the expert-drawn mask, resampled label-preservingly.
	Tumor *volume.Grid

	// Lung is the derived lung mask, same shape as CT.
	Lung *volume.Grid

	// Normalized is an optional [0,1]-scaled copy of CT for model input.
	Normalized *volume.Grid

	// ThicknessSource records which fallback strategy resolved the CT
	// slice thickness.
	ThicknessSource string
}
