package results

import (
	"math"
	"time"
)

// Severity is the discrete triage level attached to an assessment.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNormal:   0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Escalate returns the more severe of the two levels. Severity never
// decreases within one evaluation; every check funnels through this.
func (s Severity) Escalate(to Severity) Severity {
	if severityRank[to] > severityRank[s] {
		return to
	}
	return s
}

// Reason codes attached to assessments for the clinician-facing explanation.
const (
	ReasonVeryLowScore   = "very_low_score"
	ReasonLowScore       = "low_score"
	ReasonHighFillerRate = "high_filler_rate"
)

// Voice class labels.
const (
	LabelImpaired    = "impaired"
	LabelNotImpaired = "not_impaired"
)

// MRI class labels.
const (
	LabelCN   = "CN"
	LabelAD   = "AD"
	LabelEMCI = "EMCI"
	LabelLMCI = "LMCI"
)

// ClassProbabilities maps class labels to probabilities summing to 1.
type ClassProbabilities map[string]float64

// Sum returns the total probability mass, for invariant checks.
func (p ClassProbabilities) Sum() float64 {
	total := 0.0
	for _, v := range p {
		total += v
	}
	return total
}

// ArgMax returns the label with the highest probability. Ties break
// lexicographically so the result is deterministic.
func (p ClassProbabilities) ArgMax() string {
	best := ""
	bestProb := math.Inf(-1)
	for label, prob := range p {
		if prob > bestProb || (prob == bestProb && label < best) {
			best = label
			bestProb = prob
		}
	}
	return best
}

// Assessment is the structured clinical verdict for one completed job.
type Assessment struct {
	JobUUID        string             `json:"job_uuid"`
	Modality       string             `json:"modality"`
	Classification string             `json:"classification"`
	Probabilities  ClassProbabilities `json:"probabilities"`
	// Score is the voice-modality signal in [0,100], decreasing with
	// impairment probability. Zero for MRI assessments.
	Score float64 `json:"score,omitempty"`
	// Confidence is the probability of the chosen MRI class. Zero for voice.
	Confidence float64  `json:"confidence,omitempty"`
	Severity   Severity `json:"severity"`
	// Reasons is the ordered, deduplicated list of reason codes.
	Reasons       []string  `json:"reasons"`
	ModelVersions string    `json:"model_versions,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
