// Package mri implements the imaging diagnostic pipeline: assemble a
// DICOM series into a volume, run the deterministic preprocessing
// chain down to a fixed 128x128x128 tensor, then score it with the
// three-stage classifier cascade.
package mri
