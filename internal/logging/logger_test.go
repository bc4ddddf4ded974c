package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"neuroscreen/internal/services"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleHandlerOrdersPriorityFields(t *testing.T) {
	var buf bytes.Buffer
	handler := newConsoleHandler(&buf, slog.LevelInfo)
	logger := slog.New(handler)

	logger.Info("job claimed",
		String("zz_extra", "later"),
		Int64(FieldJobID, 42),
		String(FieldModality, "voice"),
	)

	line := buf.String()
	jobIdx := strings.Index(line, "job_id=42")
	extraIdx := strings.Index(line, "zz_extra=later")
	if jobIdx < 0 || extraIdx < 0 {
		t.Fatalf("expected both fields in output, got %q", line)
	}
	if jobIdx > extraIdx {
		t.Errorf("priority field should precede extras: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo))
	logger.Info("done", String("message", "two words"))
	if !strings.Contains(buf.String(), `message="two words"`) {
		t.Errorf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAttachesJobFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := services.WithJobID(context.Background(), 7)
	ctx = services.WithStage(ctx, "prepare")
	ctx = services.WithModality(ctx, "mri")
	ctx = services.WithRequestID(ctx, "req-1")

	WithContext(ctx, logger).Info("hello")

	out := buf.String()
	for _, want := range []string{`"job_id":7`, `"stage":"prepare"`, `"modality":"mri"`, `"correlation_id":"req-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output %q", want, out)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	done := make(chan struct{})
	go func() {
		logger.Error("should vanish", Duration("d", time.Second))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nop logger blocked")
	}
}
