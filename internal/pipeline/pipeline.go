package pipeline

import (
	"context"

	"neuroscreen/internal/mediastore"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
	"neuroscreen/internal/services"
)

// Signal is the prepared, model-ready form of one media artifact. It
// lives only for the duration of one job execution.
type Signal any

// Inference is the raw model output before classification.
type Inference any

// DiagnosticPipeline is the three-phase contract shared by the voice
// and imaging pipelines. Phases run in strict sequence; each consumes
// the previous phase's output.
type DiagnosticPipeline interface {
	Modality() queue.Modality
	Prepare(ctx context.Context, media *mediastore.Handle) (Signal, error)
	Infer(ctx context.Context, signal Signal, patient PatientContext) (Inference, error)
	Classify(inference Inference, patient PatientContext) (*results.Assessment, error)
}

// Unavailable returns a pipeline whose every run fails with a
// model-unavailable error. The daemon falls back to it when artifacts
// cannot be loaded, so jobs fail with a retryable kind instead of the
// process refusing to start.
func Unavailable(modality queue.Modality, cause error) DiagnosticPipeline {
	return unavailablePipeline{modality: modality, cause: cause}
}

type unavailablePipeline struct {
	modality queue.Modality
	cause    error
}

func (u unavailablePipeline) Modality() queue.Modality { return u.modality }

func (u unavailablePipeline) Prepare(context.Context, *mediastore.Handle) (Signal, error) {
	return nil, services.Wrap(services.ErrModelUnavailable, "pipeline", "prepare",
		"model artifacts failed to load", u.cause)
}

func (u unavailablePipeline) Infer(context.Context, Signal, PatientContext) (Inference, error) {
	return nil, services.Wrap(services.ErrModelUnavailable, "pipeline", "infer",
		"model artifacts failed to load", u.cause)
}

func (u unavailablePipeline) Classify(Inference, PatientContext) (*results.Assessment, error) {
	return nil, services.Wrap(services.ErrModelUnavailable, "pipeline", "classify",
		"model artifacts failed to load", u.cause)
}

// Run drives a pipeline end to end over staged media.
func Run(ctx context.Context, p DiagnosticPipeline, media *mediastore.Handle, patient PatientContext) (*results.Assessment, error) {
	signal, err := p.Prepare(ctx, media)
	if err != nil {
		return nil, err
	}
	inference, err := p.Infer(ctx, signal, patient)
	if err != nil {
		return nil, err
	}
	return p.Classify(inference, patient)
}
