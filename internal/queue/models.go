package queue

import (
	"strings"
	"time"
)

// Modality identifies the evidence channel of a job.
type Modality string

const (
	ModalityVoice Modality = "voice"
	ModalityMRI   Modality = "mri"
)

// ParseModality converts a string into a known Modality.
func ParseModality(value string) (Modality, bool) {
	normalized := Modality(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ModalityVoice, ModalityMRI:
		return normalized, true
	default:
		return "", false
	}
}

// Status represents the lifecycle of an inference job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job represents one execution of the diagnostic pipeline for one media
// artifact, persisted in SQLite.
type Job struct {
	ID             int64
	UUID           string
	Modality       Modality
	MediaRef       string
	PatientJSON    string
	Status         Status
	Attempts       int
	ErrorKind      string
	ErrorMessage   string
	NextAttemptAt  *time.Time
	LastHeartbeat  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the job has reached a final state. A failed
// job with a scheduled retry is not terminal.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted:
		return true
	case StatusFailed:
		return j.NextAttemptAt == nil
	default:
		return false
	}
}

// SetFailed marks the job failed with a machine-readable kind. When
// retryAt is non-nil the failure is a scheduled retry rather than a
// terminal state.
func (j *Job) SetFailed(kind, message string, retryAt *time.Time) {
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.NextAttemptAt = retryAt
	j.LastHeartbeat = nil
}

// SetCompleted clears failure bookkeeping and marks the job done.
func (j *Job) SetCompleted() {
	j.Status = StatusCompleted
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.NextAttemptAt = nil
	j.LastHeartbeat = nil
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Retrying   int
}
