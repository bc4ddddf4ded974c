package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	cause := errors.New("read header: short read")
	err := Wrap(ErrUnreadableMedia, "voice-preprocess", "decode", "Audio file could not be decoded", cause)
	if !errors.Is(err, ErrUnreadableMedia) {
		t.Fatalf("expected error to match ErrUnreadableMedia, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to remain reachable")
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "workflow", "run", "unexpected condition", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should classify as transient, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"unreadable", Wrap(ErrUnreadableMedia, "voice", "decode", "", nil), KindUnreadableMedia},
		{"incomplete series", Wrap(ErrIncompleteSeries, "mri", "assemble", "", nil), KindIncompleteSeries},
		{"preprocessing", Wrap(ErrPreprocessing, "mri", "mask", "empty foreground", nil), KindPreprocessing},
		{"model unavailable", Wrap(ErrModelUnavailable, "inference", "load", "", nil), KindModelUnavailable},
		{"timeout", Wrap(ErrTimeout, "workflow", "execute", "", nil), KindTimeout},
		{"deeply wrapped", fmt.Errorf("outer: %w", Wrap(ErrTimeout, "workflow", "execute", "", nil)), KindTimeout},
		{"unknown", errors.New("disk on fire"), KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindRetryPolicy(t *testing.T) {
	if KindUnreadableMedia.Retryable() {
		t.Error("unreadable media must be terminal")
	}
	if KindIncompleteSeries.Retryable() {
		t.Error("incomplete series must be terminal")
	}
	if got := KindPreprocessing.MaxRetries(); got != 1 {
		t.Errorf("preprocessing retries = %d, want 1", got)
	}
	for _, kind := range []Kind{KindModelUnavailable, KindTimeout, KindTransient} {
		if !kind.Retryable() {
			t.Errorf("%s should be retryable", kind)
		}
	}
}
