package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// ensureRuntime initializes the shared ONNX Runtime environment exactly
// once per process. The environment stays alive until exit; individual
// sessions are still closed by their owners.
func ensureRuntime(sharedLibraryPath string) error {
	runtimeOnce.Do(func() {
		if sharedLibraryPath != "" {
			ort.SetSharedLibraryPath(sharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = fmt.Errorf("initialize onnx runtime: %w", err)
		}
	})
	return runtimeErr
}
