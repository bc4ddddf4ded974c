package pipeline

import (
	"encoding/json"
	"fmt"
)

// PatientContext is the opaque patient payload attached at submission.
// The pipelines read a few well-known keys and pass the rest through
// untouched; no validation happens here.
type PatientContext map[string]any

// ParsePatientContext decodes the JSON payload stored on a job. An
// empty payload yields an empty, usable context.
func ParsePatientContext(raw string) (PatientContext, error) {
	if raw == "" {
		return PatientContext{}, nil
	}
	var ctx PatientContext
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, fmt.Errorf("decode patient context: %w", err)
	}
	if ctx == nil {
		ctx = PatientContext{}
	}
	return ctx, nil
}

// Language returns the recording language, or empty when unset.
func (p PatientContext) Language() string {
	if v, ok := p["language"].(string); ok {
		return v
	}
	return ""
}

// Covariates returns the optional clinical covariate row under the
// "covariates" key, in submission order. Missing or malformed entries
// yield an empty row, never an error.
func (p PatientContext) Covariates() []float32 {
	raw, ok := p["covariates"].([]any)
	if !ok {
		return nil
	}
	row := make([]float32, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			row = append(row, float32(f))
		}
	}
	return row
}
