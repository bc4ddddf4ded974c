package voice

import (
	"strings"

	"neuroscreen/internal/inference"
)

// fillerWords are hesitation markers counted toward the filler rate.
var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "er": {}, "ah": {}, "erm": {}, "hmm": {}, "mhm": {},
	"like": {}, "well": {}, "so": {}, "actually": {}, "basically": {},
}

// deicticWords are context-dependent pointers whose overuse correlates
// with word-finding difficulty.
var deicticWords = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {},
	"here": {}, "there": {}, "now": {}, "then": {},
	"it": {}, "thing": {}, "things": {}, "stuff": {},
}

// Metrics are the rule-based linguistic features computed over the
// tagged transcript. A transcript with zero tokens yields the zero
// value for every field.
type Metrics struct {
	FillerRate       float64
	DeicticRate      float64
	NounCount        int
	VerbCount        int
	NounVerbRatio    float64
	TokenCount       int
	UniqueTokenCount int
	LexicalDiversity float64
}

// AnalyzeTokens computes metrics over word-level tokens.
func AnalyzeTokens(tokens []Token) Metrics {
	var m Metrics
	if len(tokens) == 0 {
		return m
	}

	unique := make(map[string]struct{}, len(tokens))
	fillers := 0
	deictics := 0
	for _, tok := range tokens {
		word := strings.ToLower(tok.Text)
		unique[word] = struct{}{}
		if _, ok := fillerWords[word]; ok {
			fillers++
		}
		if _, ok := deicticWords[word]; ok {
			deictics++
		}
		switch {
		case strings.HasPrefix(tok.Tag, "NN"):
			m.NounCount++
		case strings.HasPrefix(tok.Tag, "VB"):
			m.VerbCount++
		}
	}

	m.TokenCount = len(tokens)
	m.UniqueTokenCount = len(unique)
	m.FillerRate = float64(fillers) / float64(m.TokenCount)
	m.DeicticRate = float64(deictics) / float64(m.TokenCount)
	m.LexicalDiversity = float64(m.UniqueTokenCount) / float64(m.TokenCount)

	// Verb count floors at 1 in the ratio so noun-heavy transcripts
	// with no verbs still produce a finite feature.
	verbs := m.VerbCount
	if verbs < 1 {
		verbs = 1
	}
	m.NounVerbRatio = float64(m.NounCount) / float64(verbs)
	return m
}

// Vector lays the metrics out in fixed order and zero-pads on the
// right to the declared linguistic block width.
func (m Metrics) Vector() []float32 {
	vec := make([]float32, inference.LinguisticWidth)
	vec[0] = float32(m.FillerRate)
	vec[1] = float32(m.DeicticRate)
	vec[2] = float32(m.NounCount)
	vec[3] = float32(m.VerbCount)
	vec[4] = float32(m.NounVerbRatio)
	vec[5] = float32(m.TokenCount)
	vec[6] = float32(m.UniqueTokenCount)
	vec[7] = float32(m.LexicalDiversity)
	return vec
}
