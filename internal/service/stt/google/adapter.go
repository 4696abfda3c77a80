// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/service/stt"
)

// AdapterName is the provider label used in logs and metrics.
const AdapterName = "google"

var _ stt.Adapter = (*Adapter)(nil)

// Adapter implements stt.Adapter using the synchronous Google Cloud
// Speech-to-Text Recognize API. Word time offsets from the response are
// folded into per-result transcript segments.
type Adapter struct {
	client       *speech.Client
	languageCode string
	sampleRateHz int32
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, languageCode string, sampleRateHz int32) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	if sampleRateHz == 0 {
		sampleRateHz = 16000
	}
	return &Adapter{client: c, languageCode: languageCode, sampleRateHz: sampleRateHz}, nil
}

// Name returns the provider label.
func (a *Adapter) Name() string { return AdapterName }

// Transcribe sends the normalized WAV file through a single Recognize
// call and converts each recognition result into a transcript segment
// spanning from its first word's start offset to the result end time.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*models.Transcription, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("google: read audio file: %w", err)
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            a.sampleRateHz,
			LanguageCode:               a.languageCode,
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google: recognize: %w", err)
	}

	tr := &models.Transcription{Language: a.languageCode}
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		if result.LanguageCode != "" {
			tr.Language = result.LanguageCode
		}

		start := 0.0
		if len(alt.Words) > 0 && alt.Words[0].StartTime != nil {
			start = alt.Words[0].StartTime.AsDuration().Seconds()
		}
		end := start
		if result.ResultEndTime != nil {
			end = result.ResultEndTime.AsDuration().Seconds()
		} else if n := len(alt.Words); n > 0 && alt.Words[n-1].EndTime != nil {
			end = alt.Words[n-1].EndTime.AsDuration().Seconds()
		}
		if end <= start {
			// Degenerate result without usable offsets; skip rather than
			// hand the merge engine an invalid interval.
			continue
		}

		tr.Segments = append(tr.Segments, models.TranscriptSegment{
			Start: start,
			End:   end,
			Text:  alt.Transcript,
		})
	}
	return tr, nil
}

// Close releases the underlying gRPC client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
