package voice

import (
	"math"

	"neuroscreen/internal/results"
)

// Verdict is the composed voice inference before flagging.
type Verdict struct {
	// ImpairedProbability is the logistic-transformed classifier output.
	ImpairedProbability float64
	// Score is (1 - p) * 100, the sole numeric signal carried forward.
	Score float64
}

// Compose turns the raw classifier logit into the probability and
// derived score.
func Compose(logit float64) Verdict {
	p := sigmoid(logit)
	return Verdict{
		ImpairedProbability: p,
		Score:               (1 - p) * 100,
	}
}

// Probabilities lays the verdict out as a two-class distribution.
func (v Verdict) Probabilities() results.ClassProbabilities {
	return results.ClassProbabilities{
		results.LabelImpaired:    v.ImpairedProbability,
		results.LabelNotImpaired: 1 - v.ImpairedProbability,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
