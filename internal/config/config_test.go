package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidatesWithLocalRoot(t *testing.T) {
	cfg := Default()
	cfg.MediaStore.LocalRoot = t.TempDir()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with local root should validate: %v", err)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.MediaStore.Backend = "ftp"
	cfg.normalize()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "media_store.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestValidateRequiresS3Bucket(t *testing.T) {
	cfg := Default()
	cfg.MediaStore.Backend = "s3"
	cfg.MediaStore.S3Region = "us-east-1"
	cfg.normalize()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "s3_bucket") {
		t.Fatalf("expected s3_bucket error, got %v", err)
	}
}

func TestValidateWorkflowBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"zero timeout", func(c *Config) { c.Workflow.JobTimeout = 0 }, "workflow.job_timeout"},
		{"negative retries", func(c *Config) { c.Workflow.MaxRetries = -1 }, "workflow.max_retries"},
		{"empty transcriber", func(c *Config) { c.Transcription.Command = "" }, "transcription.command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.MediaStore.LocalRoot = t.TempDir()
			tt.mutate(&cfg)
			cfg.normalize()
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[media_store]
backend = "local"
local_root = "` + dir + `"

[workflow]
workers = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workflow.Workers)
	}
	if cfg.Workflow.MaxRetries != defaultMaxRetries {
		t.Errorf("max_retries should keep default %d, got %d", defaultMaxRetries, cfg.Workflow.MaxRetries)
	}
	if cfg.Transcription.Command != defaultTranscribeCommand {
		t.Errorf("transcription command should keep default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected friendly missing-file error, got %v", err)
	}
}

func TestModelPathResolution(t *testing.T) {
	cfg := Default()
	cfg.Models.Dir = "/opt/models"
	if got := cfg.ModelPath("voice.onnx"); got != "/opt/models/voice.onnx" {
		t.Errorf("relative model path = %q", got)
	}
	if got := cfg.ModelPath("/abs/voice.onnx"); got != "/abs/voice.onnx" {
		t.Errorf("absolute model path = %q", got)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
