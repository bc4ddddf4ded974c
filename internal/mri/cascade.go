package mri

import (
	"context"
	"math"

	"neuroscreen/internal/inference"
	"neuroscreen/internal/results"
)

// impairedThreshold gates each cascade stage. A stage probability
// below it short-circuits the remaining, more expensive stages.
const impairedThreshold = 0.5

// CascadeResult carries the stage probabilities and the derived class
// distribution.
type CascadeResult struct {
	P1 float64
	P2 float64
	P3 float64

	Probabilities  results.ClassProbabilities
	Classification string
	Confidence     float64
}

// Cascade applies the three diagnostic models in strict order with
// early exit: stage one decides impaired vs. not, stage two separates
// the AD-dominant branch, stage three splits the MCI family using the
// earlier probabilities plus any clinical covariates.
type Cascade struct {
	stage1 inference.VolumeClassifier
	stage2 inference.VolumeClassifier
	stage3 inference.TabularClassifier
}

func NewCascade(stage1, stage2 inference.VolumeClassifier, stage3 inference.TabularClassifier) *Cascade {
	return &Cascade{stage1: stage1, stage2: stage2, stage3: stage3}
}

// Run scores a preprocessed volume. covariates may be empty.
func (c *Cascade) Run(ctx context.Context, volume *Volume, covariates []float32) (*CascadeResult, error) {
	p1, err := c.stage1.PredictProbability(ctx, volume.Data, volume.Dims)
	if err != nil {
		return nil, err
	}

	p2, p3 := 0.0, 0.0
	if p1 >= impairedThreshold {
		p2, err = c.stage2.PredictProbability(ctx, volume.Data, volume.Dims)
		if err != nil {
			return nil, err
		}
		if p2 >= impairedThreshold {
			row := append([]float32{float32(p1), float32(p2)}, covariates...)
			p3, err = c.stage3.PredictProbability(ctx, row)
			if err != nil {
				return nil, err
			}
		}
	}

	return ComposeCascade(p1, p2, p3), nil
}

// ComposeCascade derives the class distribution from the stage
// probabilities. When stage one has already decided the patient is
// impaired, the winning class comes from the impaired branches only,
// so a barely-over-threshold p1 cannot flip the verdict back to CN.
func ComposeCascade(p1, p2, p3 float64) *CascadeResult {
	probabilities := results.ClassProbabilities{
		results.LabelCN:   1 - p1,
		results.LabelAD:   p1 * (1 - p2),
		results.LabelEMCI: p1 * p2 * (1 - p3),
		results.LabelLMCI: p1 * p2 * p3,
	}

	var classification string
	if p1 >= impairedThreshold {
		classification = argMaxOf(probabilities,
			results.LabelAD, results.LabelEMCI, results.LabelLMCI)
	} else {
		classification = probabilities.ArgMax()
	}

	return &CascadeResult{
		P1:             p1,
		P2:             p2,
		P3:             p3,
		Probabilities:  probabilities,
		Classification: classification,
		Confidence:     probabilities[classification],
	}
}

// argMaxOf is ArgMax restricted to a subset of labels, with the same
// lexicographic tie-breaking.
func argMaxOf(p results.ClassProbabilities, labels ...string) string {
	best := ""
	bestProb := math.Inf(-1)
	for _, label := range labels {
		prob := p[label]
		if prob > bestProb || (prob == bestProb && label < best) {
			best = label
			bestProb = prob
		}
	}
	return best
}
