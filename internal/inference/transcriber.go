package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"neuroscreen/internal/config"
	lang "neuroscreen/internal/language"
	"neuroscreen/internal/services"
)

// WhisperTranscriber shells out to an external whisper CLI and reads
// back the JSON transcript it writes.
type WhisperTranscriber struct {
	cfg           config.Transcription
	workDir       string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperTranscriber builds a transcriber using cfg.Command as the
// binary. workDir holds the per-call output directories.
func NewWhisperTranscriber(cfg config.Transcription, workDir string) *WhisperTranscriber {
	return &WhisperTranscriber{cfg: cfg, workDir: workDir}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *WhisperTranscriber) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.commandRunner = runner
}

// Transcribe runs the whisper CLI over the audio file. A recording with
// no detected speech yields an empty transcript, not an error.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, language string) (Transcript, error) {
	var transcript Transcript
	if audioPath == "" {
		return transcript, fmt.Errorf("transcribe: audio path required")
	}

	outputDir, err := os.MkdirTemp(t.workDir, "transcript-*")
	if err != nil {
		return transcript, fmt.Errorf("transcribe: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	if language == "" {
		language = t.cfg.Language
	}
	language = lang.ToISO2(language)
	args := t.buildArgs(audioPath, outputDir, language)

	// The configured ceiling bounds one whisper invocation; a stuck CLI
	// must not hold a worker past it.
	runCtx := ctx
	if t.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(t.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	if err := t.run(runCtx, t.cfg.Command, args...); err != nil {
		if runCtx.Err() != nil {
			return transcript, services.Wrap(services.ErrTimeout, "inference", "transcribe",
				"transcription cancelled", runCtx.Err())
		}
		return transcript, services.Wrap(services.ErrTransient, "inference", "transcribe",
			"whisper command failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	text, detected, err := loadTranscriptJSON(jsonPath)
	if err != nil {
		return transcript, services.Wrap(services.ErrPreprocessing, "inference", "transcribe",
			"read whisper output", err)
	}

	transcript.Text = text
	// Whisper reports the detected language as a full word; fold it back
	// to the same code form the caller supplied.
	transcript.Language = lang.ToISO2(detected)
	if transcript.Language == "" {
		transcript.Language = language
	}
	return transcript, nil
}

func (t *WhisperTranscriber) buildArgs(source, outputDir, language string) []string {
	args := []string{
		source,
		"--model", t.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	return args
}

func (t *WhisperTranscriber) run(ctx context.Context, name string, args ...string) error {
	if t.commandRunner != nil {
		return t.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// whisperPayload is the JSON structure the whisper CLI writes.
type whisperPayload struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

func loadTranscriptJSON(jsonPath string) (string, string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", "", err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", fmt.Errorf("parse whisper json: %w", err)
	}
	if text := strings.TrimSpace(payload.Text); text != "" {
		return text, payload.Language, nil
	}
	var parts []string
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), payload.Language, nil
}
