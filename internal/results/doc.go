// Package results defines the externally visible assessment produced by
// a completed job and its SQLite-backed store. Assessments are immutable
// once created; re-persisting the same job id overwrites rather than
// duplicates, so retries stay idempotent.
package results
