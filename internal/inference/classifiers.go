package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"neuroscreen/internal/services"
)

// onnxBinaryClassifier runs the fused voice classifier head. The model
// takes one flat feature row and returns a single raw logit.
type onnxBinaryClassifier struct {
	model *model
	width int
}

func newBinaryClassifier(modelPath string, width int) (*onnxBinaryClassifier, error) {
	m, err := openModel(modelPath, []string{"features"}, []string{"logit"})
	if err != nil {
		return nil, err
	}
	return &onnxBinaryClassifier{model: m, width: width}, nil
}

func (c *onnxBinaryClassifier) Close() error { return c.model.Close() }

func (c *onnxBinaryClassifier) PredictLogit(ctx context.Context, features []float32) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != c.width {
		return 0, services.Wrap(services.ErrValidation, "inference", "predict",
			fmt.Sprintf("feature vector has width %d, model expects %d", len(features), c.width), nil)
	}
	input, err := newFloatTensor(features, 1, int64(len(features)))
	if err != nil {
		return 0, err
	}
	defer input.Destroy()

	out, err := c.model.runFloat32([]ort.Value{input})
	if err != nil {
		return 0, err
	}
	if len(out) < 1 {
		return 0, services.Wrap(services.ErrModelUnavailable, "inference", "predict",
			"classifier produced no output", nil)
	}
	return float64(out[0]), nil
}

// onnxVolumeClassifier runs one stage of the imaging cascade. The model
// takes a [1,1,D,H,W] volume and returns the positive-class probability.
type onnxVolumeClassifier struct {
	model *model
}

func newVolumeClassifier(modelPath string) (*onnxVolumeClassifier, error) {
	m, err := openModel(modelPath, []string{"volume"}, []string{"probability"})
	if err != nil {
		return nil, err
	}
	return &onnxVolumeClassifier{model: m}, nil
}

func (c *onnxVolumeClassifier) Close() error { return c.model.Close() }

func (c *onnxVolumeClassifier) PredictProbability(ctx context.Context, volume []float32, dims [3]int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	expected := dims[0] * dims[1] * dims[2]
	if expected == 0 || len(volume) != expected {
		return 0, services.Wrap(services.ErrValidation, "inference", "predict",
			fmt.Sprintf("volume has %d voxels, dims imply %d", len(volume), expected), nil)
	}
	input, err := newFloatTensor(volume, 1, 1, int64(dims[0]), int64(dims[1]), int64(dims[2]))
	if err != nil {
		return 0, err
	}
	defer input.Destroy()

	out, err := c.model.runFloat32([]ort.Value{input})
	if err != nil {
		return 0, err
	}
	if len(out) < 1 {
		return 0, services.Wrap(services.ErrModelUnavailable, "inference", "predict",
			"classifier produced no output", nil)
	}
	return clampProbability(float64(out[0])), nil
}

// onnxTabularClassifier runs the exported gradient-boosted head used by
// the final cascade stage. Input is a flat row of stage probabilities
// plus patient covariates, zero-padded to the model's fixed width.
type onnxTabularClassifier struct {
	model *model
	width int
}

func newTabularClassifier(modelPath string, width int) (*onnxTabularClassifier, error) {
	m, err := openModel(modelPath, []string{"features"}, []string{"probability"})
	if err != nil {
		return nil, err
	}
	return &onnxTabularClassifier{model: m, width: width}, nil
}

func (c *onnxTabularClassifier) Close() error { return c.model.Close() }

func (c *onnxTabularClassifier) PredictProbability(ctx context.Context, features []float32) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	row, err := padFeatureRow(features, c.width)
	if err != nil {
		return 0, err
	}
	input, err := newFloatTensor(row, 1, int64(len(row)))
	if err != nil {
		return 0, err
	}
	defer input.Destroy()

	out, err := c.model.runFloat32([]ort.Value{input})
	if err != nil {
		return 0, err
	}
	if len(out) < 1 {
		return 0, services.Wrap(services.ErrModelUnavailable, "inference", "predict",
			"classifier produced no output", nil)
	}
	return clampProbability(float64(out[0])), nil
}

// padFeatureRow right-pads a feature row with zeros to the declared
// model width. Rows wider than the model are a caller error.
func padFeatureRow(features []float32, width int) ([]float32, error) {
	if len(features) == 0 {
		return nil, services.Wrap(services.ErrValidation, "inference", "predict",
			"empty feature row", nil)
	}
	if len(features) > width {
		return nil, services.Wrap(services.ErrValidation, "inference", "predict",
			fmt.Sprintf("feature row has width %d, model expects at most %d", len(features), width), nil)
	}
	if len(features) == width {
		return features, nil
	}
	row := make([]float32, width)
	copy(row, features)
	return row, nil
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
