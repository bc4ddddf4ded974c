package inference

import (
	"log/slog"
	"path/filepath"
	"strings"

	"neuroscreen/internal/config"
	"neuroscreen/internal/logging"
)

// LinguisticWidth is the padded width of the hand-crafted linguistic
// feature block in the fused voice vector.
const LinguisticWidth = 16

// FusedFeatureWidth is the input width of the fused voice classifier:
// audio embedding, text embedding, then the linguistic block.
const FusedFeatureWidth = 2*EmbeddingWidth + LinguisticWidth

// TabularFeatureWidth is the input width of the final cascade stage:
// two upstream stage probabilities followed by the clinical covariate
// block, zero-padded when fewer covariates were submitted.
const TabularFeatureWidth = 8

// Registry holds every loaded model for the lifetime of the process.
// Load it once at daemon startup and inject it into the pipelines.
type Registry struct {
	Transcriber     Transcriber
	AudioEmbedder   AudioEmbedder
	TextEmbedder    TextEmbedder
	VoiceClassifier BinaryClassifier
	MRIStage1       VolumeClassifier
	MRIStage2       VolumeClassifier
	MRIStage3       TabularClassifier

	// Versions names the loaded artifacts for the assessment record.
	Versions string

	closers []interface{ Close() error }
}

// Load initializes the ONNX runtime and opens every configured model.
// On failure, everything opened so far is closed before returning.
func Load(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := ensureRuntime(cfg.Models.OnnxRuntimeLib); err != nil {
		return nil, err
	}

	r := &Registry{}
	r.Transcriber = NewWhisperTranscriber(cfg.Transcription, cfg.Paths.StagingDir)

	audio, err := newAudioEmbedder(cfg.ModelPath(cfg.Models.AudioEmbedding))
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.AudioEmbedder = audio
	r.closers = append(r.closers, audio)

	text, err := newTextEmbedder(
		cfg.ModelPath(cfg.Models.TextEmbedding),
		cfg.ModelPath(cfg.Models.TextTokenizer))
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.TextEmbedder = text
	r.closers = append(r.closers, text)

	voice, err := newBinaryClassifier(cfg.ModelPath(cfg.Models.VoiceClassifier), FusedFeatureWidth)
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.VoiceClassifier = voice
	r.closers = append(r.closers, voice)

	stage1, err := newVolumeClassifier(cfg.ModelPath(cfg.Models.MRIStage1))
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.MRIStage1 = stage1
	r.closers = append(r.closers, stage1)

	stage2, err := newVolumeClassifier(cfg.ModelPath(cfg.Models.MRIStage2))
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.MRIStage2 = stage2
	r.closers = append(r.closers, stage2)

	stage3, err := newTabularClassifier(cfg.ModelPath(cfg.Models.MRIStage3), TabularFeatureWidth)
	if err != nil {
		return nil, r.closeAfter(err)
	}
	r.MRIStage3 = stage3
	r.closers = append(r.closers, stage3)

	r.Versions = artifactVersions(cfg)
	logger.Info("models loaded",
		logging.String("model_versions", r.Versions),
		logging.String(logging.FieldComponent, "inference"))
	return r, nil
}

// Close releases every loaded session.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

func (r *Registry) closeAfter(err error) error {
	_ = r.Close()
	return err
}

func artifactVersions(cfg *config.Config) string {
	names := []string{
		cfg.Models.AudioEmbedding,
		cfg.Models.TextEmbedding,
		cfg.Models.VoiceClassifier,
		cfg.Models.MRIStage1,
		cfg.Models.MRIStage2,
		cfg.Models.MRIStage3,
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		base := filepath.Base(name)
		parts = append(parts, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return strings.Join(parts, ",")
}
