package voice

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"neuroscreen/internal/services"
)

// SampleRate is the waveform rate every model input uses.
const SampleRate = 16000

// Preprocessor converts a submitted recording into a peak-normalized
// mono 16 kHz waveform.
type Preprocessor struct {
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewPreprocessor builds a preprocessor shelling out to ffmpegBinary,
// defaulting to "ffmpeg" on the PATH.
func NewPreprocessor(ffmpegBinary string) *Preprocessor {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Preprocessor{ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Preprocessor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	p.commandRunner = runner
}

// Prepare resamples source to mono 16 kHz, decodes it and returns the
// peak-normalized samples plus the path of the resampled WAV, which the
// transcriber consumes directly. The WAV lives next to the source and
// is removed with the media staging directory.
func (p *Preprocessor) Prepare(ctx context.Context, source string) ([]float32, string, error) {
	wavPath := resampledPath(source)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-y", wavPath,
	}
	if err := p.run(ctx, p.ffmpegBinary, args...); err != nil {
		return nil, "", services.Wrap(services.ErrUnreadableMedia, "voice", "resample",
			fmt.Sprintf("decode %s", filepath.Base(source)), err)
	}

	samples, err := decodeWAV(wavPath)
	if err != nil {
		return nil, "", err
	}
	normalizePeak(samples)
	return samples, wavPath, nil
}

func (p *Preprocessor) run(ctx context.Context, name string, args ...string) error {
	if p.commandRunner != nil {
		return p.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func resampledPath(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+"_16k.wav")
}

// decodeWAV reads every sample as float32 in [-1, 1].
func decodeWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "voice", "decode",
			"open resampled audio", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, services.Wrap(services.ErrUnreadableMedia, "voice", "decode",
			fmt.Sprintf("%s is not a valid wav file", filepath.Base(path)), nil)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "voice", "decode",
			"read pcm samples", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples, nil
}

// normalizePeak scales samples so the loudest one sits at 1. A silent
// recording stays all zeros instead of dividing by zero.
func normalizePeak(samples []float32) {
	peak := float32(0)
	for _, v := range samples {
		if abs := float32(math.Abs(float64(v))); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}
