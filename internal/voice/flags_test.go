package voice

import (
	"reflect"
	"testing"

	"neuroscreen/internal/results"
)

func TestEvaluateFlags(t *testing.T) {
	tests := []struct {
		name         string
		score        float64
		fillerRate   float64
		wantSeverity results.Severity
		wantReasons  []string
	}{
		{
			name:         "very low score",
			score:        35,
			fillerRate:   0.05,
			wantSeverity: results.SeverityCritical,
			wantReasons:  []string{results.ReasonVeryLowScore},
		},
		{
			name:         "healthy score with heavy fillers",
			score:        72,
			fillerRate:   0.20,
			wantSeverity: results.SeverityWarning,
			wantReasons:  []string{results.ReasonHighFillerRate},
		},
		{
			name:         "mid score",
			score:        50,
			fillerRate:   0.02,
			wantSeverity: results.SeverityWarning,
			wantReasons:  []string{results.ReasonLowScore},
		},
		{
			name:         "healthy",
			score:        85,
			fillerRate:   0.01,
			wantSeverity: results.SeverityNormal,
			wantReasons:  nil,
		},
		{
			name:         "critical stays critical with fillers",
			score:        20,
			fillerRate:   0.30,
			wantSeverity: results.SeverityCritical,
			wantReasons:  []string{results.ReasonVeryLowScore, results.ReasonHighFillerRate},
		},
		{
			name:         "filler rate at threshold does not trigger",
			score:        80,
			fillerRate:   0.15,
			wantSeverity: results.SeverityNormal,
			wantReasons:  nil,
		},
		{
			name:         "boundary score 40 is warning",
			score:        40,
			fillerRate:   0,
			wantSeverity: results.SeverityWarning,
			wantReasons:  []string{results.ReasonLowScore},
		},
		{
			name:         "boundary score 60 is normal",
			score:        60,
			fillerRate:   0,
			wantSeverity: results.SeverityNormal,
			wantReasons:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			severity, reasons := EvaluateFlags(tt.score, tt.fillerRate)
			if severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", severity, tt.wantSeverity)
			}
			if !reflect.DeepEqual(reasons, tt.wantReasons) {
				t.Errorf("reasons = %v, want %v", reasons, tt.wantReasons)
			}
		})
	}
}

func TestFlagEscalationIsMonotonic(t *testing.T) {
	// Adding the filler signal must never produce a lower severity
	// than the score alone.
	for score := 0.0; score <= 100; score += 5 {
		base, _ := EvaluateFlags(score, 0)
		escalated, _ := EvaluateFlags(score, 0.5)
		if !escalated.AtLeast(base) {
			t.Errorf("score %.0f: filler signal downgraded %s to %s", score, base, escalated)
		}
	}
}
