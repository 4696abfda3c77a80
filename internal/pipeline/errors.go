package pipeline

import "errors"

// Error kinds surfaced by the pipeline. Callers classify failures with
// errors.Is; the HTTP layer maps ErrInvalidInput to client errors and the
// other kinds to server errors.
var (
	// ErrInvalidInput marks a recording rejected before any model
	// invocation: unsupported container, missing file, oversized payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNormalizationFailed marks an ffmpeg transcoding failure on an
	// accepted container (malformed or corrupt audio).
	ErrNormalizationFailed = errors.New("audio normalization failed")

	// ErrInference marks a failure raised by either model adapter.
	// Inference failures are never retried internally.
	ErrInference = errors.New("model inference failed")
)

// ErrorKind returns a short classification label for a pipeline error,
// used as a metrics label and in batch summaries.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNormalizationFailed):
		return "normalization"
	case errors.Is(err, ErrInference):
		return "inference"
	default:
		return "internal"
	}
}
