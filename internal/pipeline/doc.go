// Package pipeline defines the capability contract both diagnostic
// modalities implement: prepare the media into a model-ready signal,
// run inference, then classify into an assessment. The job lifecycle
// wrapper drives any implementation the same way.
package pipeline
