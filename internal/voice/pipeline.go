package voice

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

// Pipeline is the voice implementation of the diagnostic contract.
type Pipeline struct {
	preprocessor *Preprocessor
	extractor    *Extractor
	classifier   inference.BinaryClassifier
	versions     string
	logger       *slog.Logger
}

// NewPipeline wires the voice pipeline from the loaded model registry.
func NewPipeline(registry *inference.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "voice")
	return &Pipeline{
		preprocessor: NewPreprocessor(""),
		extractor: NewExtractor(
			registry.Transcriber,
			registry.AudioEmbedder,
			registry.TextEmbedder,
			nil,
			logger),
		classifier: registry.VoiceClassifier,
		versions:   registry.Versions,
		logger:     logger,
	}
}

func (p *Pipeline) Modality() queue.Modality { return queue.ModalityVoice }

// preparedAudio is the voice Signal: the normalized waveform plus the
// resampled WAV the transcriber reads.
type preparedAudio struct {
	samples []float32
	wavPath string
}

// Prepare resamples and normalizes the staged recording.
func (p *Pipeline) Prepare(ctx context.Context, media *mediastore.Handle) (pipeline.Signal, error) {
	if media == nil || media.Path() == "" {
		return nil, services.Wrap(services.ErrUnreadableMedia, "voice", "prepare",
			"no staged audio file", nil)
	}
	samples, wavPath, err := p.preprocessor.Prepare(ctx, media.Path())
	if err != nil {
		return nil, err
	}
	p.logger.Debug("audio prepared",
		logging.Int("samples", len(samples)),
		logging.Float64("seconds", float64(len(samples))/float64(SampleRate)))
	return &preparedAudio{samples: samples, wavPath: wavPath}, nil
}

// voiceInference carries the verdict and the transcript signals into
// classification.
type voiceInference struct {
	verdict Verdict
	metrics Metrics
}

// Infer extracts the fused feature vector and scores it.
func (p *Pipeline) Infer(ctx context.Context, signal pipeline.Signal, patient pipeline.PatientContext) (pipeline.Inference, error) {
	prepared, ok := signal.(*preparedAudio)
	if !ok {
		return nil, services.Wrap(services.ErrPreprocessing, "voice", "infer",
			"unexpected signal type", nil)
	}

	features, err := p.extractor.Extract(ctx, prepared.samples, prepared.wavPath, patient.Language())
	if err != nil {
		return nil, err
	}
	logit, err := p.classifier.PredictLogit(ctx, features.Vector)
	if err != nil {
		return nil, err
	}

	verdict := Compose(logit)
	p.logger.Info("voice inference complete",
		logging.Float64("score", verdict.Score),
		logging.Float64("impaired_probability", verdict.ImpairedProbability),
		logging.Float64("filler_rate", features.Metrics.FillerRate))
	return &voiceInference{verdict: verdict, metrics: features.Metrics}, nil
}

// Classify applies the flag policy and builds the assessment.
func (p *Pipeline) Classify(inf pipeline.Inference, patient pipeline.PatientContext) (*results.Assessment, error) {
	vi, ok := inf.(*voiceInference)
	if !ok {
		return nil, services.Wrap(services.ErrPreprocessing, "voice", "classify",
			"unexpected inference type", nil)
	}

	probabilities := vi.verdict.Probabilities()
	severity, reasons := EvaluateFlags(vi.verdict.Score, vi.metrics.FillerRate)

	return &results.Assessment{
		Modality:       string(queue.ModalityVoice),
		Classification: probabilities.ArgMax(),
		Probabilities:  probabilities,
		Score:          vi.verdict.Score,
		Severity:       severity,
		Reasons:        reasons,
		ModelVersions:  p.versions,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

var _ pipeline.DiagnosticPipeline = (*Pipeline)(nil)
