package voice

import "neuroscreen/internal/results"

// Score thresholds and the filler-rate trigger for the flag policy.
const (
	criticalScoreThreshold = 40
	warningScoreThreshold  = 60
	fillerRateThreshold    = 0.15
)

// EvaluateFlags applies the escalation policy to a score and filler
// rate. Severity only ever escalates within one evaluation; reasons
// come back ordered and deduplicated.
func EvaluateFlags(score, fillerRate float64) (results.Severity, []string) {
	severity := results.SeverityNormal
	var reasons []string

	switch {
	case score < criticalScoreThreshold:
		severity = severity.Escalate(results.SeverityCritical)
		reasons = append(reasons, results.ReasonVeryLowScore)
	case score < warningScoreThreshold:
		severity = severity.Escalate(results.SeverityWarning)
		reasons = append(reasons, results.ReasonLowScore)
	}

	if fillerRate > fillerRateThreshold {
		severity = severity.Escalate(results.SeverityWarning)
		reasons = appendReason(reasons, results.ReasonHighFillerRate)
	}

	return severity, reasons
}

func appendReason(reasons []string, reason string) []string {
	for _, existing := range reasons {
		if existing == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}
