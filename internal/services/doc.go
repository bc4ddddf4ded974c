// Package services provides the shared error taxonomy and context
// annotation helpers used across pipeline stages and the workflow
// manager. Stage code wraps failures with a sentinel kind via Wrap;
// the workflow manager later recovers the kind with Classify to decide
// between a scheduled retry and a terminal failure.
package services
