// Package mock provides a mock STT adapter for development and tests
// without a running whisper-server or cloud credentials. It returns a
// fixed, deterministic transcript regardless of the audio content.
package mock

import (
	"context"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/service/stt"
)

// AdapterName is the provider label used in logs and metrics.
const AdapterName = "mock"

// DefaultSegments is the canned transcript returned by a zero-value
// Adapter. Timings line up with the diarization mock so the merged
// conversation alternates Agent/Customer.
var DefaultSegments = []models.TranscriptSegment{
	{Start: 0.0, End: 3.2, Text: " Thank you for calling, how can I help you today?"},
	{Start: 3.8, End: 7.5, Text: " Hi, I want to cancel my subscription."},
	{Start: 8.0, End: 11.4, Text: " I can help with that, may I have your account number?"},
	{Start: 12.0, End: 14.9, Text: " Sure, it's four two seven one."},
}

var _ stt.Adapter = (*Adapter)(nil)

// Adapter implements stt.Adapter with canned responses.
type Adapter struct {
	Segments []models.TranscriptSegment
	Language string
	Err      error // returned verbatim when set
}

// New creates a mock adapter returning DefaultSegments in English.
func New() *Adapter {
	return &Adapter{Segments: DefaultSegments, Language: "en"}
}

// Name returns the provider label.
func (a *Adapter) Name() string { return AdapterName }

// Transcribe returns the configured segments, or the configured error.
func (a *Adapter) Transcribe(_ context.Context, _ string) (*models.Transcription, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	return &models.Transcription{Segments: a.Segments, Language: a.Language}, nil
}
