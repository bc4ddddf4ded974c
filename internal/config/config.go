package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	StagingDir string `toml:"staging_dir"`
}

// MediaStore selects and configures the raw-media collaborator.
type MediaStore struct {
	// Backend is "local" or "s3".
	Backend   string `toml:"backend"`
	LocalRoot string `toml:"local_root"`
	S3Bucket  string `toml:"s3_bucket"`
	S3Region  string `toml:"s3_region"`
	S3Prefix  string `toml:"s3_prefix"`
	// S3Endpoint overrides the AWS endpoint for S3-compatible stores.
	S3Endpoint string `toml:"s3_endpoint"`
}

// Models locates the pretrained artifacts. Every path is resolved
// relative to Dir when not absolute.
type Models struct {
	Dir            string `toml:"dir"`
	OnnxRuntimeLib string `toml:"onnxruntime_lib"`

	VoiceClassifier string `toml:"voice_classifier"`
	AudioEmbedding  string `toml:"audio_embedding"`
	TextEmbedding   string `toml:"text_embedding"`
	TextTokenizer   string `toml:"text_tokenizer"`

	MRIStage1 string `toml:"mri_stage1"`
	MRIStage2 string `toml:"mri_stage2"`
	MRIStage3 string `toml:"mri_stage3"`
}

// Transcription configures the external speech-to-text tool.
type Transcription struct {
	Command        string `toml:"command"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains daemon scheduling and retry settings.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	JobTimeout         int `toml:"job_timeout"`
	RetryBackoff       int `toml:"retry_backoff"`
	MaxRetries         int `toml:"max_retries"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Assessments    bool   `toml:"assessments"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	MediaStore    MediaStore    `toml:"media_store"`
	Models        Models        `toml:"models"`
	Transcription Transcription `toml:"transcription"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the expected config file location.
func DefaultConfigPath() string {
	return expandPath("~/.config/neuroscreen/config.toml")
}

// Load reads configuration from path, layering file values over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found at %s (run `neuroscreen config init`)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads configuration from the default path, falling back to
// pure defaults when no file exists.
func LoadDefault() (*Config, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.normalize()
		return &cfg, nil
	}
	return Load(path)
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.StagingDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file shared by the job queue and the
// result store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "neuroscreen.db")
}

// ModelPath resolves a model artifact path against Models.Dir.
func (c *Config) ModelPath(name string) string {
	name = expandPath(name)
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(expandPath(c.Models.Dir), name)
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandPath(c.Paths.DataDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Paths.StagingDir = expandPath(c.Paths.StagingDir)
	c.Models.Dir = expandPath(c.Models.Dir)
	c.MediaStore.LocalRoot = expandPath(c.MediaStore.LocalRoot)
	c.MediaStore.Backend = strings.ToLower(strings.TrimSpace(c.MediaStore.Backend))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
