package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside the pipeline.
func (c *Config) Validate() error {
	var problems []string

	switch c.MediaStore.Backend {
	case "local":
		if c.MediaStore.LocalRoot == "" {
			problems = append(problems, "media_store.local_root is required for the local backend")
		}
	case "s3":
		if c.MediaStore.S3Bucket == "" {
			problems = append(problems, "media_store.s3_bucket is required for the s3 backend")
		}
		if c.MediaStore.S3Region == "" && c.MediaStore.S3Endpoint == "" {
			problems = append(problems, "media_store.s3_region or media_store.s3_endpoint must be set")
		}
	default:
		problems = append(problems, fmt.Sprintf("media_store.backend must be \"local\" or \"s3\", got %q", c.MediaStore.Backend))
	}

	if c.Workflow.Workers < 1 {
		problems = append(problems, "workflow.workers must be at least 1")
	}
	if c.Workflow.JobTimeout < 1 {
		problems = append(problems, "workflow.job_timeout must be at least 1 second")
	}
	if c.Workflow.MaxRetries < 0 {
		problems = append(problems, "workflow.max_retries must not be negative")
	}
	if c.Workflow.RetryBackoff < 0 {
		problems = append(problems, "workflow.retry_backoff must not be negative")
	}
	if c.Workflow.QueuePollInterval < 1 {
		problems = append(problems, "workflow.queue_poll_interval must be at least 1 second")
	}

	if c.Transcription.Command == "" {
		problems = append(problems, "transcription.command must name the speech-to-text executable")
	}
	if c.Transcription.TimeoutSeconds < 1 {
		problems = append(problems, "transcription.timeout_seconds must be at least 1 second")
	}

	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be auto, console, or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
