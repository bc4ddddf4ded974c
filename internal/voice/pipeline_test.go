package voice

import (
	"context"
	"math"
	"testing"

	"neuroscreen/internal/inference"
	"neuroscreen/internal/logging"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/results"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audioPath, language string) (inference.Transcript, error) {
	return inference.Transcript{Text: f.text, Language: language}, f.err
}

type fakeAudioEmbedder struct{}

func (fakeAudioEmbedder) EmbedAudio(ctx context.Context, samples []float32) ([]float32, error) {
	return make([]float32, inference.EmbeddingWidth), nil
}

type fakeTextEmbedder struct{}

func (fakeTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, inference.EmbeddingWidth), nil
}

type fakeClassifier struct {
	logit float64
}

func (f fakeClassifier) PredictLogit(ctx context.Context, features []float32) (float64, error) {
	return f.logit, nil
}

type fakeTagger struct {
	tokens []Token
}

func (f fakeTagger) Tag(text string) ([]Token, error) { return f.tokens, nil }

func testPipeline(t *testing.T, transcript string, tokens []Token, logit float64) *Pipeline {
	t.Helper()
	logger := logging.NewNop()
	return &Pipeline{
		preprocessor: NewPreprocessor(""),
		extractor: NewExtractor(
			fakeTranscriber{text: transcript},
			fakeAudioEmbedder{},
			fakeTextEmbedder{},
			fakeTagger{tokens: tokens},
			logger),
		classifier: fakeClassifier{logit: logit},
		versions:   "test",
		logger:     logger,
	}
}

func TestFeatureVectorWidthIsConstant(t *testing.T) {
	extractor := NewExtractor(
		fakeTranscriber{text: ""},
		fakeAudioEmbedder{},
		fakeTextEmbedder{},
		fakeTagger{},
		logging.NewNop())

	for _, transcriptTokens := range [][]Token{
		nil,
		{tok("um", "UH")},
		{tok("the", "DT"), tok("cat", "NN"), tok("sat", "VBD")},
	} {
		extractor.tagger = fakeTagger{tokens: transcriptTokens}
		features, err := extractor.Extract(context.Background(), []float32{0.1, 0.2}, "/tmp/a.wav", "en")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(features.Vector) != inference.FusedFeatureWidth {
			t.Errorf("width = %d, want %d", len(features.Vector), inference.FusedFeatureWidth)
		}
	}
}

func TestInferAndClassify(t *testing.T) {
	// Strongly negative logit: low impairment probability, high score.
	p := testPipeline(t, "the cat sat", []Token{tok("cat", "NN"), tok("sat", "VBD")}, -3)

	signal := &preparedAudio{samples: []float32{0.1}, wavPath: "/tmp/a.wav"}
	inf, err := p.Infer(context.Background(), signal, pipeline.PatientContext{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	assessment, err := p.Classify(inf, pipeline.PatientContext{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if assessment.Modality != "voice" {
		t.Errorf("modality = %s", assessment.Modality)
	}
	if assessment.Severity != results.SeverityNormal {
		t.Errorf("severity = %s, want normal for high score", assessment.Severity)
	}
	if assessment.Classification != results.LabelNotImpaired {
		t.Errorf("classification = %s", assessment.Classification)
	}
	if math.Abs(assessment.Probabilities.Sum()-1) > 1e-9 {
		t.Errorf("probabilities sum = %v", assessment.Probabilities.Sum())
	}
	if assessment.Score < 60 {
		t.Errorf("score = %v, want >= 60 for negative logit", assessment.Score)
	}
}

func TestInferFlagsImpairedSpeech(t *testing.T) {
	// Positive logit plus filler-heavy transcript.
	tokens := []Token{tok("um", "UH"), tok("uh", "UH"), tok("cat", "NN")}
	p := testPipeline(t, "um uh cat", tokens, 3)

	signal := &preparedAudio{samples: []float32{0.1}, wavPath: "/tmp/a.wav"}
	inf, err := p.Infer(context.Background(), signal, pipeline.PatientContext{})
	if err != nil {
		t.Fatal(err)
	}
	assessment, err := p.Classify(inf, pipeline.PatientContext{})
	if err != nil {
		t.Fatal(err)
	}

	if assessment.Severity != results.SeverityCritical {
		t.Errorf("severity = %s, want critical", assessment.Severity)
	}
	if assessment.Classification != results.LabelImpaired {
		t.Errorf("classification = %s", assessment.Classification)
	}
	wantReasons := []string{results.ReasonVeryLowScore, results.ReasonHighFillerRate}
	if len(assessment.Reasons) != len(wantReasons) {
		t.Fatalf("reasons = %v", assessment.Reasons)
	}
	for i, r := range wantReasons {
		if assessment.Reasons[i] != r {
			t.Errorf("reasons[%d] = %s, want %s", i, assessment.Reasons[i], r)
		}
	}
}

func TestComposeScoreRange(t *testing.T) {
	for _, logit := range []float64{-10, -1, 0, 1, 10} {
		v := Compose(logit)
		if v.Score < 0 || v.Score > 100 {
			t.Errorf("logit %v: score %v out of range", logit, v.Score)
		}
		if v.ImpairedProbability < 0 || v.ImpairedProbability > 1 {
			t.Errorf("logit %v: probability %v out of range", logit, v.ImpairedProbability)
		}
	}
	// Score decreases as impairment probability rises.
	if Compose(2).Score >= Compose(-2).Score {
		t.Error("score should decrease with impairment probability")
	}
	if got := Compose(0).Score; math.Abs(got-50) > 1e-9 {
		t.Errorf("Compose(0).Score = %v, want 50", got)
	}
}

func TestEmptyAudioProducesEmptyFeatures(t *testing.T) {
	extractor := NewExtractor(
		fakeTranscriber{text: ""},
		fakeAudioEmbedder{},
		fakeTextEmbedder{},
		fakeTagger{},
		logging.NewNop())

	features, err := extractor.Extract(context.Background(), make([]float32, 16), "/tmp/quiet.wav", "en")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if features.Transcript != "" {
		t.Errorf("transcript = %q", features.Transcript)
	}
	if features.Metrics != (Metrics{}) {
		t.Errorf("metrics should be all zero, got %+v", features.Metrics)
	}
	if len(features.Vector) != inference.FusedFeatureWidth {
		t.Errorf("width = %d", len(features.Vector))
	}
}
