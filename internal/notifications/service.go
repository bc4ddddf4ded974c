package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"neuroscreen/internal/config"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/results"
)

const userAgent = "Neuroscreen/0.1.0"

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyAssessmentFlagged(ctx context.Context, jobUUID string, assessment *results.Assessment, patient pipeline.PatientContext) error
	NotifyJobFailed(ctx context.Context, jobUUID, modality, errorKind string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic
// is configured, and a noop implementation otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		sendAssessments: cfg.Notifications.Assessments,
		sendErrors:      cfg.Notifications.Errors,
	}
}

// IsConfigured reports whether the service actually delivers
// notifications, as opposed to the noop fallback.
func IsConfigured(s Service) bool {
	if s == nil {
		return false
	}
	_, noop := s.(noopService)
	return !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	sendAssessments bool
	sendErrors      bool
}

func (n *ntfyService) NotifyAssessmentFlagged(ctx context.Context, jobUUID string, assessment *results.Assessment, patient pipeline.PatientContext) error {
	if !n.sendAssessments || assessment == nil {
		return nil
	}

	priority := "default"
	if assessment.Severity == results.SeverityCritical {
		priority = "high"
	}

	message := fmt.Sprintf("Job %s (%s): severity %s, score %.0f",
		jobUUID, assessment.Modality, assessment.Severity, assessment.Score)
	if len(assessment.Reasons) > 0 {
		message = fmt.Sprintf("%s\nReasons: %s", message, strings.Join(assessment.Reasons, ", "))
	}
	// The patient payload is opaque; forward it as submitted so the
	// recipient can tie the alert back to the subject.
	if len(patient) > 0 {
		if encoded, err := json.Marshal(patient); err == nil {
			message = fmt.Sprintf("%s\nPatient: %s", message, encoded)
		}
	}

	return n.send(ctx, payload{
		title:    "Neuroscreen - Assessment Flagged",
		message:  message,
		tags:     []string{"neuroscreen", "assessment", string(assessment.Severity)},
		priority: priority,
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobUUID, modality, errorKind string) error {
	if !n.sendErrors {
		return nil
	}
	if errorKind == "" {
		errorKind = "unknown"
	}
	return n.send(ctx, payload{
		title:    "Neuroscreen - Job Failed",
		message:  fmt.Sprintf("Job %s (%s) failed terminally: %s", jobUUID, modality, errorKind),
		tags:     []string{"neuroscreen", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Neuroscreen - Test",
		message:  "Notification system test",
		tags:     []string{"neuroscreen", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAssessmentFlagged(context.Context, string, *results.Assessment, pipeline.PatientContext) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
