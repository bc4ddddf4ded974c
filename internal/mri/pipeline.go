package mri

import (
	"context"
	"log/slog"
	"time"

	"neuroscreen/internal/inference"
	"neuroscreen/internal/logging"
	"neuroscreen/internal/mediastore"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
	"neuroscreen/internal/services"
)

// Pipeline is the imaging implementation of the diagnostic contract.
type Pipeline struct {
	cascade  *Cascade
	versions string
	logger   *slog.Logger
}

// NewPipeline wires the imaging pipeline from the loaded model registry.
func NewPipeline(registry *inference.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cascade:  NewCascade(registry.MRIStage1, registry.MRIStage2, registry.MRIStage3),
		versions: registry.Versions,
		logger:   logging.NewComponentLogger(logger, "mri"),
	}
}

func (p *Pipeline) Modality() queue.Modality { return queue.ModalityMRI }

// Prepare assembles the staged series and runs the preprocessing chain
// down to the fixed model shape.
func (p *Pipeline) Prepare(ctx context.Context, media *mediastore.Handle) (pipeline.Signal, error) {
	if media == nil || len(media.Paths) == 0 {
		return nil, services.Wrap(services.ErrIncompleteSeries, "mri", "prepare",
			"no staged series files", nil)
	}

	assembled, err := AssembleSeries(media.Paths)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("series assembled",
		logging.Int("slices", assembled.Dims[0]),
		logging.Int("rows", assembled.Dims[1]),
		logging.Int("cols", assembled.Dims[2]))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := Preprocess(assembled)
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

// Infer runs the cascade over the prepared volume.
func (p *Pipeline) Infer(ctx context.Context, signal pipeline.Signal, patient pipeline.PatientContext) (pipeline.Inference, error) {
	volume, ok := signal.(*Volume)
	if !ok {
		return nil, services.Wrap(services.ErrPreprocessing, "mri", "infer",
			"unexpected signal type", nil)
	}

	result, err := p.cascade.Run(ctx, volume, patient.Covariates())
	if err != nil {
		return nil, err
	}
	p.logger.Info("cascade complete",
		logging.Float64("p1", result.P1),
		logging.Float64("p2", result.P2),
		logging.Float64("p3", result.P3),
		logging.String("classification", result.Classification))
	return result, nil
}

// Classify builds the assessment from the cascade result. Imaging
// results carry no severity policy; they always report normal.
func (p *Pipeline) Classify(inf pipeline.Inference, patient pipeline.PatientContext) (*results.Assessment, error) {
	result, ok := inf.(*CascadeResult)
	if !ok {
		return nil, services.Wrap(services.ErrPreprocessing, "mri", "classify",
			"unexpected inference type", nil)
	}

	return &results.Assessment{
		Modality:       string(queue.ModalityMRI),
		Classification: result.Classification,
		Probabilities:  result.Probabilities,
		Confidence:     result.Confidence,
		Severity:       results.SeverityNormal,
		ModelVersions:  p.versions,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

var _ pipeline.DiagnosticPipeline = (*Pipeline)(nil)
