package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tag failures with a machine-readable kind. Pipeline
// code should not invent new error categories; wrap with one of these.
var (
	// ErrUnreadableMedia marks input that cannot be decoded at all.
	ErrUnreadableMedia = errors.New("unreadable media")
	// ErrIncompleteSeries marks an MRI slice series below the minimum count.
	ErrIncompleteSeries = errors.New("incomplete series")
	// ErrPreprocessing marks a deterministic preprocessing sub-step failure.
	ErrPreprocessing = errors.New("preprocessing error")
	// ErrModelUnavailable marks a pretrained artifact that failed to load or run.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrTimeout marks a job that exceeded its wall-clock budget.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid caller input.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Kind is the short machine-readable identifier persisted with failed jobs
// and surfaced to callers. Raw error text never leaves the workflow boundary.
type Kind string

const (
	KindUnreadableMedia  Kind = "unreadable_media"
	KindIncompleteSeries Kind = "incomplete_series"
	KindPreprocessing    Kind = "preprocessing"
	KindModelUnavailable Kind = "model_unavailable"
	KindTimeout          Kind = "timeout"
	KindConfiguration    Kind = "configuration"
	KindValidation       Kind = "validation"
	KindTransient        Kind = "transient"
)

// Wrap builds an error that carries stage context while tagging it with the
// provided sentinel for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error chain to its Kind. Unknown errors classify as
// transient so they stay eligible for a retry.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableMedia):
		return KindUnreadableMedia
	case errors.Is(err, ErrIncompleteSeries):
		return KindIncompleteSeries
	case errors.Is(err, ErrPreprocessing):
		return KindPreprocessing
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindTransient
	}
}

// MaxRetries returns how many retries a failure kind allows on top of the
// first attempt, before the global retry ceiling is applied.
//
// Unreadable or incomplete input is deterministic and never retried.
// Preprocessing failures are retried exactly once: transient resource
// pressure can cause numerical instability, but a second identical failure
// is treated as terminal. Model loading, timeouts, and unclassified
// failures retry up to the ceiling.
func (k Kind) MaxRetries() int {
	switch k {
	case KindUnreadableMedia, KindIncompleteSeries, KindConfiguration, KindValidation:
		return 0
	case KindPreprocessing:
		return 1
	default:
		return 1 << 30
	}
}

// Retryable reports whether the kind permits any retry at all.
func (k Kind) Retryable() bool {
	return k.MaxRetries() > 0
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
