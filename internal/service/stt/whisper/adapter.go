// Package whisper provides a speech-to-text adapter backed by a local
// whisper.cpp server (the whisper-server binary, which exposes a REST API
// at POST /inference). Audio is submitted as a complete WAV file per
// recording; the server returns timestamped segments when asked for
// verbose JSON output.
package whisper

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
	"time"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/service/stt"
)

const (
	// AdapterName is the provider label used in logs and metrics.
	AdapterName = "whisper"

	defaultTimeout = 300 * time.Second
)

// Compile-time assertion that Adapter implements stt.Adapter.
var _ stt.Adapter = (*Adapter)(nil)

// Option is a functional option for configuring an Adapter.
type Option func(*Adapter)

// WithLanguage sets the language hint sent to the server (e.g. "en").
// When empty the server auto-detects and reports the language.
func WithLanguage(lang string) Option {
	return func(a *Adapter) {
		a.language = lang
	}
}

// WithTimeout overrides the per-request HTTP timeout. Inference on a long
// recording with a large model can take minutes; the default is 300s.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.client.Timeout = d
	}
}

// Adapter implements stt.Adapter against a whisper.cpp HTTP server.
type Adapter struct {
	serverURL string
	language  string
	client    *http.Client
}

// New creates an Adapter for the whisper-server at serverURL (e.g.
// "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Adapter, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	a := &Adapter{
		serverURL: serverURL,
		client:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Name returns the provider label.
func (a *Adapter) Name() string { return AdapterName }

// Transcribe submits the WAV file at audioPath to the whisper.cpp
// /inference endpoint and converts the verbose JSON response into ordered
// transcript segments.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*models.Transcription, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("whisper: write audio data: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("whisper: write response_format field: %w", err)
	}
	if a.language != "" {
		if err := mw.WriteField("language", a.language); err != nil {
			return nil, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serverURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, msg)
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return toTranscription(&result), nil
}

// IsAvailable reports whether the whisper-server answers its health
// endpoint. Used for the readiness check at startup.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.serverURL+"/health", nil)
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

// --- internal whisper.cpp API types ---

type inferenceResponse struct {
	Language string             `json:"language"`
	Segments []inferenceSegment `json:"segments"`
}

type inferenceSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func toTranscription(resp *inferenceResponse) *models.Transcription {
	segments := make([]models.TranscriptSegment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = models.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}
	return &models.Transcription{
		Segments: segments,
		Language: resp.Language,
	}
}
