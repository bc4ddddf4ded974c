package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"neuroscreen/internal/config"
)

// Requirement defines an external binary or artifact the daemon relies on.
type Requirement struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists everything the configured pipelines need at runtime:
// the audio tooling binaries and the ONNX artifacts the registry loads.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Audio resampling for voice jobs"},
		{Name: "Transcriber", Command: cfg.Transcription.Command, Description: "Speech-to-text for voice jobs"},
	}
	if lib := strings.TrimSpace(cfg.Models.OnnxRuntimeLib); lib != "" {
		reqs = append(reqs, Requirement{
			Name: "ONNX Runtime", Path: lib,
			Description: "Shared library backing model inference",
		})
	}
	artifacts := []struct {
		name string
		file string
	}{
		{"Voice classifier", cfg.Models.VoiceClassifier},
		{"Audio embedding", cfg.Models.AudioEmbedding},
		{"Text embedding", cfg.Models.TextEmbedding},
		{"Text tokenizer", cfg.Models.TextTokenizer},
		{"MRI stage 1", cfg.Models.MRIStage1},
		{"MRI stage 2", cfg.Models.MRIStage2},
		{"MRI stage 3", cfg.Models.MRIStage3},
	}
	for _, artifact := range artifacts {
		reqs = append(reqs, Requirement{
			Name:        artifact.name,
			Path:        cfg.ModelPath(artifact.file),
			Description: "Model artifact",
		})
	}
	return reqs
}

// Check evaluates the provided requirements and reports availability.
// Requirements with a Command are resolved on PATH; requirements with a
// Path must exist as regular files.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkOne(req))
	}
	return results
}

func checkOne(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}

	if path := strings.TrimSpace(req.Path); path != "" {
		status.Command = path
		info, err := os.Stat(path)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("artifact %q not found", path)
		case info.IsDir():
			status.Detail = fmt.Sprintf("artifact %q is a directory", path)
		default:
			status.Available = true
		}
		return status
	}

	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if resolved, err := exec.LookPath(status.Command); err == nil {
		status.Command = resolved
		status.Available = true
		return status
	}
	status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	return status
}

// Missing filters statuses down to unavailable required dependencies.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
