package voice

import (
	"math"
	"testing"

	"neuroscreen/internal/inference"
)

func tok(text, tag string) Token { return Token{Text: text, Tag: tag} }

func TestAnalyzeTokensZeroTokens(t *testing.T) {
	m := AnalyzeTokens(nil)
	if m != (Metrics{}) {
		t.Errorf("zero tokens should yield zero metrics, got %+v", m)
	}
	vec := m.Vector()
	if len(vec) != inference.LinguisticWidth {
		t.Fatalf("vector width = %d, want %d", len(vec), inference.LinguisticWidth)
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %v, want 0", i, v)
		}
	}
}

func TestAnalyzeTokensCounts(t *testing.T) {
	tokens := []Token{
		tok("um", "UH"),
		tok("the", "DT"),
		tok("cat", "NN"),
		tok("sat", "VBD"),
		tok("there", "RB"),
		tok("cat", "NN"),
	}
	m := AnalyzeTokens(tokens)

	if m.TokenCount != 6 {
		t.Errorf("TokenCount = %d", m.TokenCount)
	}
	if m.UniqueTokenCount != 5 {
		t.Errorf("UniqueTokenCount = %d", m.UniqueTokenCount)
	}
	if m.NounCount != 2 || m.VerbCount != 1 {
		t.Errorf("nouns/verbs = %d/%d", m.NounCount, m.VerbCount)
	}
	if math.Abs(m.FillerRate-1.0/6) > 1e-9 {
		t.Errorf("FillerRate = %v", m.FillerRate)
	}
	if math.Abs(m.DeicticRate-1.0/6) > 1e-9 {
		t.Errorf("DeicticRate = %v", m.DeicticRate)
	}
	if math.Abs(m.NounVerbRatio-2) > 1e-9 {
		t.Errorf("NounVerbRatio = %v", m.NounVerbRatio)
	}
	if math.Abs(m.LexicalDiversity-5.0/6) > 1e-9 {
		t.Errorf("LexicalDiversity = %v", m.LexicalDiversity)
	}
}

func TestNounVerbRatioFloorsVerbCount(t *testing.T) {
	tokens := []Token{
		tok("cat", "NN"),
		tok("dog", "NN"),
		tok("tree", "NN"),
	}
	m := AnalyzeTokens(tokens)
	if m.VerbCount != 0 {
		t.Fatalf("VerbCount = %d", m.VerbCount)
	}
	if m.NounVerbRatio != 3 {
		t.Errorf("NounVerbRatio = %v, want 3 with floored verb count", m.NounVerbRatio)
	}
}

func TestVectorLayout(t *testing.T) {
	tokens := []Token{tok("um", "UH"), tok("cat", "NN")}
	m := AnalyzeTokens(tokens)
	vec := m.Vector()
	if len(vec) != inference.LinguisticWidth {
		t.Fatalf("width = %d", len(vec))
	}
	if vec[0] != float32(m.FillerRate) || vec[5] != float32(m.TokenCount) {
		t.Errorf("layout mismatch: %v", vec[:8])
	}
	// Padding stays zero.
	for i := 8; i < len(vec); i++ {
		if vec[i] != 0 {
			t.Errorf("vec[%d] = %v, want zero padding", i, vec[i])
		}
	}
}

func TestNormalizePeak(t *testing.T) {
	samples := []float32{0.25, -0.5, 0.1}
	normalizePeak(samples)
	if samples[1] != -1 {
		t.Errorf("peak should scale to -1, got %v", samples[1])
	}
	if samples[0] != 0.5 {
		t.Errorf("samples[0] = %v", samples[0])
	}

	silent := []float32{0, 0, 0}
	normalizePeak(silent)
	for i, v := range silent {
		if v != 0 {
			t.Errorf("silent[%d] = %v, silence must stay zero", i, v)
		}
	}
}
