package inference

import "context"

// Transcript is the text output of speech recognition.
type Transcript struct {
	Text     string
	Language string
}

// Transcriber converts a staged audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (Transcript, error)
}

// AudioEmbedder maps a mono 16 kHz waveform to a fixed-width vector.
type AudioEmbedder interface {
	EmbedAudio(ctx context.Context, samples []float32) ([]float32, error)
}

// TextEmbedder maps a transcript to a fixed-width vector.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// BinaryClassifier scores a feature vector and returns a raw logit.
type BinaryClassifier interface {
	PredictLogit(ctx context.Context, features []float32) (float64, error)
}

// VolumeClassifier scores a preprocessed 3D volume and returns the
// probability of the positive class.
type VolumeClassifier interface {
	PredictProbability(ctx context.Context, volume []float32, dims [3]int) (float64, error)
}

// TabularClassifier scores a flat feature row and returns the
// probability of the positive class.
type TabularClassifier interface {
	PredictProbability(ctx context.Context, features []float32) (float64, error)
}
