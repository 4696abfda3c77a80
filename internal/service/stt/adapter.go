// Package stt defines the interface for speech-to-text adapters.
package stt

import (
	"context"

	"call-transcription-service/internal/models"
)

// Adapter defines the interface for batch speech-to-text backends
// (whisper.cpp sidecar, Google Cloud Speech, mock). Implementations are
// constructed once at startup and must be safe for concurrent use across
// recordings.
type Adapter interface {
	// Name identifies the backend for logs and metrics labels.
	Name() string

	// Transcribe runs speech recognition over a normalized WAV file and
	// returns ordered, timestamped segments plus the detected language.
	// A recording without detected speech yields zero segments, not an
	// error.
	Transcribe(ctx context.Context, audioPath string) (*models.Transcription, error)
}
