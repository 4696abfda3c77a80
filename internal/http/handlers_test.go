package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"call-transcription-service/internal/pipeline"
	diarmock "call-transcription-service/internal/service/diarize/mock"
	sttmock "call-transcription-service/internal/service/stt/mock"
	"call-transcription-service/internal/storage"
)

// passthroughNormalizer stands in for ffmpeg: it copies the input to a
// WAV-named sibling in tmpDir.
type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(_ context.Context, inputPath, tmpDir string) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", err
	}
	out := filepath.Join(tmpDir, filepath.Base(inputPath)+"_16k.wav")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func newTestHandler(t *testing.T, maxUploadBytes int64, withPersister bool) *Handler {
	t.Helper()
	tmp := t.TempDir()
	recordings := t.TempDir()

	pipe := pipeline.New(sttmock.New(), diarmock.New(), passthroughNormalizer{}, nil,
		pipeline.Config{MaxConcurrent: 2, TmpDir: tmp})

	var persister *pipeline.Persister
	if withPersister {
		writer, err := storage.NewWriter(t.TempDir())
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		persister = &pipeline.Persister{Writer: writer}
	}

	return NewHandler("call-transcription-service", pipe, persister, recordings, maxUploadBytes, tmp)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestTranscribe_Upload(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	body, contentType := multipartUpload(t, "file", "support_call.wav", []byte("fake wav bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transcribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status 'success', got %q", resp.Status)
	}
	if resp.Metadata.Filename != "support_call.wav" {
		t.Errorf("expected filename 'support_call.wav', got %q", resp.Metadata.Filename)
	}
	if len(resp.Conversation) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(resp.Conversation))
	}
	want := []string{"Agent", "Customer", "Agent", "Customer"}
	for i, turn := range resp.Conversation {
		if turn.Speaker != want[i] {
			t.Errorf("turn %d: expected speaker %s, got %s", i, want[i], turn.Speaker)
		}
	}
	if resp.JSONPath != "" {
		t.Errorf("upload response should not reference artifacts, got %q", resp.JSONPath)
	}
}

func TestTranscribe_UnsupportedFormat(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	body, contentType := multipartUpload(t, "file", "notes.txt", []byte("not audio"))
	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported format") {
		t.Errorf("expected unsupported-format error, got %s", rec.Body.String())
	}
}

func TestTranscribe_OversizeRejected(t *testing.T) {
	h := newTestHandler(t, 64, false)
	router := NewRouter(h)

	body, contentType := multipartUpload(t, "file", "big.wav", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
}

func TestTranscribe_MissingFileField(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	body, contentType := multipartUpload(t, "attachment", "call.wav", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestTranscribeFromPath(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, true)
	router := NewRouter(h)

	audio := filepath.Join(h.RecordingsDir, "call_0042.mp3")
	if err := os.WriteFile(audio, []byte("fake mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe-from-path",
		strings.NewReader(`{"file_path": "call_0042.mp3"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transcribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Metadata.Filename != "call_0042.mp3" {
		t.Errorf("expected filename 'call_0042.mp3', got %q", resp.Metadata.Filename)
	}
	if resp.JSONPath == "" || resp.TxtPath == "" {
		t.Fatalf("expected persisted artifact paths, got %q / %q", resp.JSONPath, resp.TxtPath)
	}
	if _, err := os.Stat(resp.JSONPath); err != nil {
		t.Errorf("json artifact not written: %v", err)
	}
	if _, err := os.Stat(resp.TxtPath); err != nil {
		t.Errorf("txt artifact not written: %v", err)
	}
}

func TestTranscribeFromPath_Traversal(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	for _, p := range []string{"../outside.wav", "/etc/passwd.wav"} {
		body, _ := json.Marshal(fromPathRequest{FilePath: p})
		req := httptest.NewRequest(http.MethodPost, "/v1/transcribe-from-path", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %q: expected status 400, got %d", p, rec.Code)
		}
	}
}

func TestTranscribeFromPath_NotFound(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe-from-path",
		strings.NewReader(`{"file_path": "missing.wav"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestTranscribeFromPath_BadJSON(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe-from-path",
		strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBanner(t *testing.T) {
	h := newTestHandler(t, 50*1024*1024, false)
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "call-transcription-service") {
		t.Errorf("expected service name in banner, got %s", rec.Body.String())
	}
}
