package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"neuroscreen/internal/services"
)

// model wraps one ONNX session with dynamic input shapes.
type model struct {
	path        string
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func openModel(path string, inputNames, outputNames []string) (*model, error) {
	session, err := ort.NewDynamicAdvancedSession(path, inputNames, outputNames, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "inference", "load",
			fmt.Sprintf("open model %s", path), err)
	}
	return &model{
		path:        path,
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

func (m *model) Close() error {
	if m == nil || m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

// runFloat32 feeds float32 tensors through the session and copies the
// first output tensor out before releasing it.
func (m *model) runFloat32(inputs []ort.Value) ([]float32, error) {
	outputs := make([]ort.Value, len(m.outputNames))
	if err := m.session.Run(inputs, outputs); err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "inference", "run",
			fmt.Sprintf("run model %s", m.path), err)
	}
	defer destroyValues(outputs)

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, services.Wrap(services.ErrModelUnavailable, "inference", "run",
			fmt.Sprintf("model %s produced an unexpected output type", m.path), nil)
	}
	data := tensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func newFloatTensor(data []float32, dims ...int64) (*ort.Tensor[float32], error) {
	tensor, err := ort.NewTensor(ort.NewShape(dims...), data)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}
	return tensor, nil
}

func newInt64Tensor(data []int64, dims ...int64) (*ort.Tensor[int64], error) {
	tensor, err := ort.NewTensor(ort.NewShape(dims...), data)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}
	return tensor, nil
}

func destroyValues(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			_ = v.Destroy()
		}
	}
}
