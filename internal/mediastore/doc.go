// Package mediastore fetches submitted media into local staging space.
// A job carries only a media reference; the store resolves it against
// the configured backend (local directory or S3 bucket) and hands the
// workflow a temporary on-disk copy that is removed after processing.
package mediastore
