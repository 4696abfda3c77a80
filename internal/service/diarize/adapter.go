// Package diarize defines the interface for speaker-diarization adapters.
package diarize

import (
	"context"

	"call-transcription-service/internal/models"
)

// Adapter defines the interface for diarization backends. Implementations
// are constructed once at startup and must be safe for concurrent use
// across recordings.
//
// The returned segments are not guaranteed to be ordered or contiguous;
// consumers must not assume either.
type Adapter interface {
	// Name identifies the backend for logs and metrics labels.
	Name() string

	// Diarize partitions a normalized WAV file into per-speaker time
	// segments. A recording with no detectable speech yields zero
	// segments, not an error.
	Diarize(ctx context.Context, audioPath string) ([]models.SpeakerSegment, error)
}
