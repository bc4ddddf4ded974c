package mri

import (
	"context"
	"math"
	"testing"

	"neuroscreen/internal/logging"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/results"
)

func testMRIPipeline(p1, p2, p3 float64) *Pipeline {
	return &Pipeline{
		cascade: NewCascade(
			&fakeVolumeClassifier{probability: p1},
			&fakeVolumeClassifier{probability: p2},
			&fakeTabularClassifier{probability: p3}),
		versions: "test",
		logger:   logging.NewNop(),
	}
}

func TestInferAndClassifyHealthy(t *testing.T) {
	p := testMRIPipeline(0.3, 0.9, 0.9)
	patient := pipeline.PatientContext{}

	inf, err := p.Infer(context.Background(), testVolume(), patient)
	if err != nil {
		t.Fatal(err)
	}
	assessment, err := p.Classify(inf, patient)
	if err != nil {
		t.Fatal(err)
	}

	if assessment.Modality != "mri" {
		t.Errorf("modality = %s", assessment.Modality)
	}
	if assessment.Classification != results.LabelCN {
		t.Errorf("classification = %s", assessment.Classification)
	}
	if math.Abs(assessment.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %v, want 0.7", assessment.Confidence)
	}
	if assessment.Severity != results.SeverityNormal {
		t.Errorf("severity = %s", assessment.Severity)
	}
	if math.Abs(assessment.Probabilities.Sum()-1) > 1e-9 {
		t.Errorf("probabilities sum = %v", assessment.Probabilities.Sum())
	}
}

func TestInferRejectsWrongSignalType(t *testing.T) {
	p := testMRIPipeline(0.3, 0, 0)
	if _, err := p.Infer(context.Background(), "not a volume", pipeline.PatientContext{}); err == nil {
		t.Fatal("expected error for wrong signal type")
	}
}
