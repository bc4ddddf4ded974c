package inference

import (
	"context"
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"neuroscreen/internal/services"
)

// EmbeddingWidth is the vector width produced by both embedding models.
const EmbeddingWidth = 768

// onnxAudioEmbedder runs the wav2vec-style acoustic model. The model
// takes the raw waveform and returns frame embeddings that are mean
// pooled into a single vector.
type onnxAudioEmbedder struct {
	model *model
}

func newAudioEmbedder(modelPath string) (*onnxAudioEmbedder, error) {
	m, err := openModel(modelPath, []string{"input_values"}, []string{"last_hidden_state"})
	if err != nil {
		return nil, err
	}
	return &onnxAudioEmbedder{model: m}, nil
}

func (e *onnxAudioEmbedder) Close() error { return e.model.Close() }

func (e *onnxAudioEmbedder) EmbedAudio(ctx context.Context, samples []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, services.Wrap(services.ErrPreprocessing, "inference", "embed_audio",
			"waveform is empty", nil)
	}

	input, err := newFloatTensor(samples, 1, int64(len(samples)))
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	out, err := e.model.runFloat32([]ort.Value{input})
	if err != nil {
		return nil, err
	}
	return meanPool(out, EmbeddingWidth)
}

// maxTextTokens caps transcript length before embedding. Longer
// transcripts are truncated, not rejected.
const maxTextTokens = 512

// onnxTextEmbedder runs the contextual language model over the
// transcript tokens and keeps the first-token summary vector.
type onnxTextEmbedder struct {
	model *model
	tk    *tokenizer.Tokenizer
}

func newTextEmbedder(modelPath, tokenizerPath string) (*onnxTextEmbedder, error) {
	tk, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "inference", "load",
			fmt.Sprintf("load tokenizer %s", tokenizerPath), err)
	}
	m, err := openModel(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"})
	if err != nil {
		return nil, err
	}
	return &onnxTextEmbedder{model: m, tk: tk}, nil
}

func (e *onnxTextEmbedder) Close() error { return e.model.Close() }

func (e *onnxTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// An empty transcript still embeds; the tokenizer emits only the
	// special tokens and the vector degrades gracefully.
	encoding, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, services.Wrap(services.ErrPreprocessing, "inference", "embed_text",
			"tokenize transcript", err)
	}

	length := len(encoding.Ids)
	if length == 0 {
		return make([]float32, EmbeddingWidth), nil
	}
	if length > maxTextTokens {
		length = maxTextTokens
	}
	ids := make([]int64, length)
	mask := make([]int64, length)
	for i := 0; i < length; i++ {
		ids[i] = int64(encoding.Ids[i])
		mask[i] = int64(encoding.AttentionMask[i])
	}

	idsTensor, err := newInt64Tensor(ids, 1, int64(length))
	if err != nil {
		return nil, err
	}
	defer idsTensor.Destroy()
	maskTensor, err := newInt64Tensor(mask, 1, int64(length))
	if err != nil {
		return nil, err
	}
	defer maskTensor.Destroy()

	out, err := e.model.runFloat32([]ort.Value{idsTensor, maskTensor})
	if err != nil {
		return nil, err
	}
	return firstToken(out, EmbeddingWidth)
}

// firstToken takes the summary vector at position zero of a
// [tokens x width] row-major matrix.
func firstToken(data []float32, width int) ([]float32, error) {
	if len(data) < width {
		return nil, fmt.Errorf("embedding output length %d is shorter than width %d", len(data), width)
	}
	vec := make([]float32, width)
	copy(vec, data[:width])
	return vec, nil
}

// meanPool averages a [frames x width] row-major matrix into one
// width-length vector.
func meanPool(data []float32, width int) ([]float32, error) {
	if len(data) == 0 || len(data)%width != 0 {
		return nil, fmt.Errorf("embedding output length %d is not a multiple of %d", len(data), width)
	}
	frames := len(data) / width
	pooled := make([]float32, width)
	for f := 0; f < frames; f++ {
		row := data[f*width : (f+1)*width]
		for i, v := range row {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float32(frames)
	}
	return pooled, nil
}
