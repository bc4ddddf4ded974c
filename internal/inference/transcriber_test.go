package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"neuroscreen/internal/config"
	"neuroscreen/internal/services"
)

func testTranscriber(t *testing.T, runner func(ctx context.Context, name string, args ...string) error) *WhisperTranscriber {
	t.Helper()
	cfg := config.Transcription{Command: "whisper", Model: "base", Language: "en"}
	tr := NewWhisperTranscriber(cfg, t.TempDir())
	tr.WithCommandRunner(runner)
	return tr
}

// argValue pulls the value following a flag out of a CLI invocation.
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestTranscribeParsesWhisperOutput(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		outDir := argValue(args, "--output_dir")
		payload := `{"text": " The cat sat on the mat. ", "language": "en"}`
		return os.WriteFile(filepath.Join(outDir, "sample.json"), []byte(payload), 0o644)
	}

	tr := testTranscriber(t, runner)
	transcript, err := tr.Transcribe(context.Background(), "/media/sample.wav", "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript.Text != "The cat sat on the mat." {
		t.Errorf("text = %q", transcript.Text)
	}
	if transcript.Language != "en" {
		t.Errorf("language = %q", transcript.Language)
	}
	if gotName != "whisper" {
		t.Errorf("command = %q", gotName)
	}
	if argValue(gotArgs, "--model") != "base" {
		t.Errorf("model arg missing: %v", gotArgs)
	}
	if argValue(gotArgs, "--language") != "en" {
		t.Errorf("language should default from config: %v", gotArgs)
	}
}

func TestTranscribeEmptySpeechYieldsEmptyTranscript(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) error {
		outDir := argValue(args, "--output_dir")
		payload := `{"text": "", "segments": [], "language": "en"}`
		return os.WriteFile(filepath.Join(outDir, "quiet.json"), []byte(payload), 0o644)
	}

	tr := testTranscriber(t, runner)
	transcript, err := tr.Transcribe(context.Background(), "/media/quiet.wav", "en")
	if err != nil {
		t.Fatalf("silence should not be an error: %v", err)
	}
	if transcript.Text != "" {
		t.Errorf("text = %q, want empty", transcript.Text)
	}
}

func TestTranscribeJoinsSegmentsWhenTextMissing(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) error {
		outDir := argValue(args, "--output_dir")
		payload := `{"segments": [{"text": " hello "}, {"text": "world"}]}`
		return os.WriteFile(filepath.Join(outDir, "sample.json"), []byte(payload), 0o644)
	}

	tr := testTranscriber(t, runner)
	transcript, err := tr.Transcribe(context.Background(), "/media/sample.wav", "en")
	if err != nil {
		t.Fatal(err)
	}
	if transcript.Text != "hello world" {
		t.Errorf("text = %q", transcript.Text)
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) error {
		return errors.New("model download failed")
	}
	tr := testTranscriber(t, runner)
	_, err := tr.Transcribe(context.Background(), "/media/sample.wav", "en")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
}

func TestTranscribeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := func(ctx context.Context, name string, args ...string) error {
		cancel()
		return ctx.Err()
	}
	tr := testTranscriber(t, runner)
	_, err := tr.Transcribe(ctx, "/media/sample.wav", "en")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTranscribeAppliesConfiguredTimeout(t *testing.T) {
	cfg := config.Transcription{Command: "whisper", Model: "base", TimeoutSeconds: 30}
	tr := NewWhisperTranscriber(cfg, t.TempDir())

	var deadline time.Time
	var hasDeadline bool
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		deadline, hasDeadline = ctx.Deadline()
		outDir := argValue(args, "--output_dir")
		payload := `{"text": "ok", "language": "en"}`
		return os.WriteFile(filepath.Join(outDir, "sample.json"), []byte(payload), 0o644)
	})

	start := time.Now()
	if _, err := tr.Transcribe(context.Background(), "/media/sample.wav", "en"); err != nil {
		t.Fatal(err)
	}
	if !hasDeadline {
		t.Fatal("runner context should carry the configured deadline")
	}
	if remaining := deadline.Sub(start); remaining > 30*time.Second || remaining < 20*time.Second {
		t.Errorf("deadline %v after start, want about 30s out", remaining)
	}
}

func TestTranscribeTimeoutExpiryMapsToTimeoutKind(t *testing.T) {
	cfg := config.Transcription{Command: "whisper", Model: "base", TimeoutSeconds: 1}
	tr := NewWhisperTranscriber(cfg, t.TempDir())
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := tr.Transcribe(context.Background(), "/media/sample.wav", "en")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestMeanPool(t *testing.T) {
	// Two frames of width four.
	data := []float32{1, 2, 3, 4, 3, 4, 5, 6}
	pooled, err := meanPool(data, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if pooled[i] != want[i] {
			t.Errorf("pooled[%d] = %v, want %v", i, pooled[i], want[i])
		}
	}

	if _, err := meanPool([]float32{1, 2, 3}, 4); err == nil {
		t.Error("length mismatch should error")
	}
}

func TestPadFeatureRowZeroPadsToModelWidth(t *testing.T) {
	row, err := padFeatureRow([]float32{0.9, 0.8, 74}, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0.9, 0.8, 74, 0, 0, 0, 0, 0}
	if len(row) != len(want) {
		t.Fatalf("row width = %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestPadFeatureRowRejectsBadWidths(t *testing.T) {
	if _, err := padFeatureRow(nil, 8); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty row err = %v, want ErrValidation", err)
	}
	if _, err := padFeatureRow(make([]float32, 9), 8); !errors.Is(err, services.ErrValidation) {
		t.Errorf("oversized row err = %v, want ErrValidation", err)
	}

	exact := []float32{1, 2, 3}
	row, err := padFeatureRow(exact, 3)
	if err != nil {
		t.Fatal(err)
	}
	if &row[0] != &exact[0] {
		t.Error("row at model width should pass through unchanged")
	}
}

func TestClampProbability(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.2, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.4, 1},
	}
	for _, tc := range cases {
		if got := clampProbability(tc.in); got != tc.want {
			t.Errorf("clampProbability(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
