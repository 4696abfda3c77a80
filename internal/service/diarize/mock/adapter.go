// Package mock provides a mock diarization adapter for development and
// tests without a running Pyannote sidecar.
package mock

import (
	"context"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/service/diarize"
)

// AdapterName is the provider label used in logs and metrics.
const AdapterName = "mock"

// DefaultSegments alternates two speakers on timings that line up with
// the STT mock's canned transcript.
var DefaultSegments = []models.SpeakerSegment{
	{Start: 0.0, End: 3.5, Speaker: "SPEAKER_00"},
	{Start: 3.5, End: 7.8, Speaker: "SPEAKER_01"},
	{Start: 7.8, End: 11.6, Speaker: "SPEAKER_00"},
	{Start: 11.6, End: 15.0, Speaker: "SPEAKER_01"},
}

var _ diarize.Adapter = (*Adapter)(nil)

// Adapter implements diarize.Adapter with canned responses.
type Adapter struct {
	Segments []models.SpeakerSegment
	Err      error // returned verbatim when set
}

// New creates a mock adapter returning DefaultSegments.
func New() *Adapter {
	return &Adapter{Segments: DefaultSegments}
}

// Name returns the provider label.
func (a *Adapter) Name() string { return AdapterName }

// Diarize returns the configured segments, or the configured error.
func (a *Adapter) Diarize(_ context.Context, _ string) ([]models.SpeakerSegment, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	return a.Segments, nil
}
