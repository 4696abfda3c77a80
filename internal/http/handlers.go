package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"call-transcription-service/internal/media"
	"call-transcription-service/internal/models"
	"call-transcription-service/internal/observability/logging"
	"call-transcription-service/internal/observability/metrics"
	"call-transcription-service/internal/pipeline"
)

// Handler serves the transcription endpoints. Persister may be nil for
// deployments that only want inline responses.
type Handler struct {
	ServiceName    string
	Pipeline       *pipeline.Pipeline
	Persister      *pipeline.Persister
	RecordingsDir  string
	MaxUploadBytes int64
	TmpDir         string

	metrics *metrics.Metrics
}

// NewHandler wires a Handler around the pipeline.
func NewHandler(serviceName string, pipe *pipeline.Pipeline, persister *pipeline.Persister, recordingsDir string, maxUploadBytes int64, tmpDir string) *Handler {
	return &Handler{
		ServiceName:    serviceName,
		Pipeline:       pipe,
		Persister:      persister,
		RecordingsDir:  recordingsDir,
		MaxUploadBytes: maxUploadBytes,
		TmpDir:         tmpDir,
		metrics:        metrics.DefaultMetrics,
	}
}

type transcribeResponse struct {
	Status       string                    `json:"status"`
	Metadata     models.Metadata           `json:"metadata"`
	Conversation []models.ConversationTurn `json:"conversation"`
	JSONPath     string                    `json:"json_path,omitempty"`
	TxtPath      string                    `json:"txt_path,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type fromPathRequest struct {
	FilePath string `json:"file_path"`
}

// Banner reports the service identity at the root path.
func (h *Handler) Banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": h.ServiceName,
		"status":  "ok",
	})
}

// Transcribe accepts a multipart audio upload in the "file" field and
// responds with the merged conversation. Size and format are validated
// before any model invocation; the upload is staged to a temporary
// directory that is removed on every exit path.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent("http")

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.metrics.RecordUploadRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.MaxUploadBytes))
			return
		}
		h.metrics.RecordUploadRejected("bad_multipart")
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.RecordUploadRejected("missing_file")
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	if !media.IsSupported(header.Filename) {
		h.metrics.RecordUploadRejected("unsupported_format")
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported format %q, accepted: %s",
				filepath.Ext(header.Filename), strings.Join(media.SupportedFormats, ", ")))
		return
	}

	// Stage under the original base name so the result metadata carries
	// the caller's filename, inside a per-request directory to avoid
	// collisions between concurrent uploads of the same file.
	stagingDir := filepath.Join(h.tmpBase(), "upload_"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create staging directory")
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.RemoveAll(stagingDir)

	stagedPath := filepath.Join(stagingDir, filepath.Base(header.Filename))
	written, err := stageUpload(stagedPath, file)
	if err != nil {
		logger.Error().Err(err).Str("file", header.Filename).Msg("Failed to stage upload")
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	h.metrics.RecordUploadAccepted(written)

	result, err := h.Pipeline.Process(r.Context(), stagedPath)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Status:       "success",
		Metadata:     result.Metadata,
		Conversation: result.Conversation,
	})
}

// TranscribeFromPath processes a recording already present under the
// configured recordings directory and persists its artifacts the same
// way the batch path does.
func (h *Handler) TranscribeFromPath(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent("http")

	var req fromPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, `"file_path" is required`)
		return
	}

	audioPath, err := h.resolveRecording(req.FilePath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(audioPath); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("recording %q not found", req.FilePath))
		return
	}

	result, err := h.Pipeline.Process(r.Context(), audioPath)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := transcribeResponse{
		Status:       "success",
		Metadata:     result.Metadata,
		Conversation: result.Conversation,
	}
	if h.Persister != nil {
		jsonPath, txtPath, err := h.Persister.Persist(r.Context(), audioPath, result)
		if err != nil {
			logger.Error().Err(err).Str("file", result.Metadata.Filename).Msg("Failed to persist artifacts")
			writeError(w, http.StatusInternalServerError, "failed to persist artifacts")
			return
		}
		resp.JSONPath = jsonPath
		resp.TxtPath = txtPath
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveRecording joins a client-supplied relative path onto the
// recordings directory, rejecting absolute paths and traversal outside
// the root.
func (h *Handler) resolveRecording(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", errors.New("file_path must be relative to the recordings directory")
	}
	root := filepath.Clean(h.RecordingsDir)
	full := filepath.Join(root, filepath.Clean(p))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", errors.New("file_path escapes the recordings directory")
	}
	return full, nil
}

func (h *Handler) tmpBase() string {
	if h.TmpDir != "" {
		return h.TmpDir
	}
	return os.TempDir()
}

func stageUpload(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()
	return io.Copy(dst, src)
}

// statusFor maps pipeline failures onto HTTP status codes. Invalid
// input is the caller's fault; everything else is a server error.
func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: msg})
}
