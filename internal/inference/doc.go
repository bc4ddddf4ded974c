// Package inference wraps the trained model artifacts behind narrow
// interfaces so the pipelines never touch ONNX Runtime directly. The
// registry loads every artifact once per process; transcription shells
// out to an external whisper binary.
package inference
