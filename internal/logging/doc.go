// Package logging configures slog-based structured logging for the
// daemon and CLI. It provides console and JSON handlers, standardized
// field names, attr helpers, and context-derived fields so every log
// line emitted while a job is in flight carries the job id, stage, and
// correlation id.
package logging
