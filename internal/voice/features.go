package voice

import (
	"context"
	"log/slog"

	"neuroscreen/internal/inference"
	"neuroscreen/internal/logging"
	"neuroscreen/internal/services"
)

// Features is the fused feature vector plus the transcript-level
// signals the flag policy needs after classification.
type Features struct {
	Vector     []float32
	Transcript string
	Metrics    Metrics
}

// Extractor builds the fused feature vector from a prepared waveform:
// audio embedding, text embedding, then the linguistic block.
type Extractor struct {
	transcriber   inference.Transcriber
	audioEmbedder inference.AudioEmbedder
	textEmbedder  inference.TextEmbedder
	tagger        Tagger
	logger        *slog.Logger
}

func NewExtractor(
	transcriber inference.Transcriber,
	audioEmbedder inference.AudioEmbedder,
	textEmbedder inference.TextEmbedder,
	tagger Tagger,
	logger *slog.Logger,
) *Extractor {
	if tagger == nil {
		tagger = NewProseTagger()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		transcriber:   transcriber,
		audioEmbedder: audioEmbedder,
		textEmbedder:  textEmbedder,
		tagger:        tagger,
		logger:        logger,
	}
}

// Extract runs transcription, both embedding models and the linguistic
// analyzer. The output vector always has width FusedFeatureWidth, no
// matter how short or empty the transcript is.
func (e *Extractor) Extract(ctx context.Context, samples []float32, audioPath, language string) (*Features, error) {
	transcript, err := e.transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, err
	}

	audioVec, err := e.audioEmbedder.EmbedAudio(ctx, samples)
	if err != nil {
		return nil, err
	}
	textVec, err := e.textEmbedder.EmbedText(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}

	tokens, err := e.tagger.Tag(transcript.Text)
	if err != nil {
		return nil, services.Wrap(services.ErrPreprocessing, "voice", "linguistic",
			"tag transcript", err)
	}
	metrics := AnalyzeTokens(tokens)

	vector := make([]float32, 0, inference.FusedFeatureWidth)
	vector = append(vector, audioVec...)
	vector = append(vector, textVec...)
	vector = append(vector, metrics.Vector()...)
	if len(vector) != inference.FusedFeatureWidth {
		return nil, services.Wrap(services.ErrPreprocessing, "voice", "fuse",
			"feature vector width mismatch", nil)
	}

	e.logger.Debug("features extracted",
		logging.Int("tokens", metrics.TokenCount),
		logging.Float64("filler_rate", metrics.FillerRate),
		logging.Int("transcript_chars", len(transcript.Text)))

	return &Features{
		Vector:     vector,
		Transcript: transcript.Text,
		Metrics:    metrics,
	}, nil
}
