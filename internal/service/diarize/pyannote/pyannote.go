// Package pyannote provides a diarization adapter backed by a Pyannote
// HTTP sidecar. The sidecar wraps the pyannote.audio speaker-diarization
// pipeline and accepts complete audio files at POST /diarize.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/service/diarize"
)

const (
	// AdapterName is the provider label used in logs and metrics.
	AdapterName = "pyannote"

	defaultTimeout = 300 * time.Second
)

var _ diarize.Adapter = (*Adapter)(nil)

// Config holds configuration for the Pyannote sidecar adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxSpeakers caps the number of speakers the pipeline may detect
	// (0 = auto). Call recordings are normally capped at 2.
	MaxSpeakers int
}

// Adapter implements diarize.Adapter using the Pyannote HTTP sidecar.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates a new Pyannote diarization adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("pyannote: BaseURL must not be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider label.
func (a *Adapter) Name() string { return AdapterName }

// IsAvailable checks if the Pyannote sidecar is reachable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize sends audio to the Pyannote sidecar and returns its speaker
// segments in the sidecar's own order.
func (a *Adapter) Diarize(ctx context.Context, audioPath string) ([]models.SpeakerSegment, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("pyannote: read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("pyannote: create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("pyannote: write audio data: %w", err)
	}
	if a.cfg.MaxSpeakers > 0 {
		_ = writer.WriteField("max_speakers", strconv.Itoa(a.cfg.MaxSpeakers))
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("pyannote: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pyannote: diarization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("pyannote: diarization error (status %d): %s", resp.StatusCode, body)
	}

	var result pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pyannote: decode diarization response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("pyannote: diarization error: %s", result.Error)
	}

	return toSpeakerSegments(&result), nil
}

// --- internal Pyannote API types ---

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func toSpeakerSegments(resp *pyannoteResponse) []models.SpeakerSegment {
	segments := make([]models.SpeakerSegment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = models.SpeakerSegment{
			Start:   seg.StartTime,
			End:     seg.EndTime,
			Speaker: seg.SpeakerID,
		}
	}
	return segments
}
