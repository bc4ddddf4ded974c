package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"neuroscreen/internal/config"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/results"
)

type captured struct {
	title    string
	priority string
	tags     string
	body     string
}

func testService(t *testing.T, assessments, errors bool) (Service, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Assessments = assessments
	cfg.Notifications.Errors = errors
	return NewService(&cfg), &requests
}

func TestNotifyAssessmentFlaggedCritical(t *testing.T) {
	svc, requests := testService(t, true, true)

	assessment := &results.Assessment{
		Modality: "voice",
		Score:    35,
		Severity: results.SeverityCritical,
		Reasons:  []string{results.ReasonVeryLowScore},
	}
	patient := pipeline.PatientContext{"patient_id": "p-042", "age": float64(74)}
	if err := svc.NotifyAssessmentFlagged(context.Background(), "job-1", assessment, patient); err != nil {
		t.Fatalf("NotifyAssessmentFlagged: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("requests = %d", len(*requests))
	}
	got := (*requests)[0]
	if got.priority != "high" {
		t.Errorf("priority = %q, want high for critical", got.priority)
	}
	if got.title != "Neuroscreen - Assessment Flagged" {
		t.Errorf("title = %q", got.title)
	}
	if !strings.Contains(got.body, `"patient_id":"p-042"`) {
		t.Errorf("body should carry the submitted patient context: %q", got.body)
	}
}

func TestNotifyAssessmentWarningUsesDefaultPriority(t *testing.T) {
	svc, requests := testService(t, true, true)

	assessment := &results.Assessment{
		Modality: "voice",
		Score:    55,
		Severity: results.SeverityWarning,
	}
	if err := svc.NotifyAssessmentFlagged(context.Background(), "job-2", assessment, nil); err != nil {
		t.Fatal(err)
	}
	got := (*requests)[0]
	if got.priority != "" {
		t.Errorf("priority header = %q, want unset for warning", got.priority)
	}
	if strings.Contains(got.body, "Patient:") {
		t.Errorf("empty patient context should not add a patient line: %q", got.body)
	}
}

func TestNotificationsRespectConfigGates(t *testing.T) {
	svc, requests := testService(t, false, false)

	assessment := &results.Assessment{Severity: results.SeverityCritical}
	if err := svc.NotifyAssessmentFlagged(context.Background(), "job-3", assessment, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyJobFailed(context.Background(), "job-3", "mri", "timeout"); err != nil {
		t.Fatal(err)
	}
	if len(*requests) != 0 {
		t.Errorf("gated notifications still sent %d requests", len(*requests))
	}
}

func TestNoTopicYieldsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := NewService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("service = %T, want noop without a topic", svc)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Errorf("noop TestNotification: %v", err)
	}
}

func TestServerErrorSurfacesButIsIgnorable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true
	svc := NewService(&cfg)

	if err := svc.NotifyJobFailed(context.Background(), "job-4", "voice", "timeout"); err == nil {
		t.Fatal("expected error from 500 response")
	}
}
