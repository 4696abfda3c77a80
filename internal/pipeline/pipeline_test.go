package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	diarizemock "call-transcription-service/internal/service/diarize/mock"
	sttmock "call-transcription-service/internal/service/stt/mock"
	"call-transcription-service/internal/service/transcript"
)

// stubNormalizer copies the input to a fresh file instead of invoking
// ffmpeg, so the pipeline's temp-file cleanup has something to remove.
type stubNormalizer struct {
	err   error
	calls int
}

func (n *stubNormalizer) Normalize(_ context.Context, inputPath, tmpDir string) (string, error) {
	n.calls++
	if n.err != nil {
		return "", n.err
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	out := filepath.Join(tmpDir, filepath.Base(inputPath)+".norm.wav")
	if err := os.WriteFile(out, []byte("wav"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func writeRecording(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func newTestPipeline(norm Normalizer) *Pipeline {
	return New(sttmock.New(), diarizemock.New(), norm, transcript.DefaultLabels(), Config{MaxConcurrent: 2})
}

func TestProcess_EndToEnd(t *testing.T) {
	p := newTestPipeline(&stubNormalizer{})
	path := writeRecording(t, "call.wav")

	result, err := p.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(result.Conversation) != len(sttmock.DefaultSegments) {
		t.Fatalf("expected %d turns, got %d", len(sttmock.DefaultSegments), len(result.Conversation))
	}
	want := []string{"Agent", "Customer", "Agent", "Customer"}
	for i, label := range want {
		if result.Conversation[i].Speaker != label {
			t.Errorf("turn %d: expected speaker %q, got %q", i, label, result.Conversation[i].Speaker)
		}
	}

	meta := result.Metadata
	if meta.Filename != "call.wav" {
		t.Errorf("expected filename 'call.wav', got %q", meta.Filename)
	}
	if meta.Duration != 14.9 {
		t.Errorf("expected duration 14.9 (last segment end), got %g", meta.Duration)
	}
	if meta.SpeakersDetected != 2 {
		t.Errorf("expected 2 speakers detected, got %d", meta.SpeakersDetected)
	}
	if meta.Language != "en" {
		t.Errorf("expected language 'en', got %q", meta.Language)
	}
	if meta.ProcessedAt.IsZero() {
		t.Error("expected non-zero ProcessedAt")
	}
}

func TestProcess_RejectsUnsupportedFormat(t *testing.T) {
	norm := &stubNormalizer{}
	p := newTestPipeline(norm)
	path := writeRecording(t, "call.ogg")

	_, err := p.Process(context.Background(), path)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if norm.calls != 0 {
		t.Errorf("normalizer must not run for rejected input, got %d calls", norm.calls)
	}
}

func TestProcess_RejectsMissingFile(t *testing.T) {
	p := newTestPipeline(&stubNormalizer{})

	_, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "absent.wav"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing file, got %v", err)
	}
}

func TestProcess_NormalizationFailure(t *testing.T) {
	p := newTestPipeline(&stubNormalizer{err: errors.New("corrupt container")})
	path := writeRecording(t, "call.webm")

	_, err := p.Process(context.Background(), path)
	if !errors.Is(err, ErrNormalizationFailed) {
		t.Fatalf("expected ErrNormalizationFailed, got %v", err)
	}
}

func TestProcess_InferenceFailurePropagates(t *testing.T) {
	sttAdapter := sttmock.New()
	sttAdapter.Err = errors.New("model crashed")
	p := New(sttAdapter, diarizemock.New(), &stubNormalizer{}, transcript.DefaultLabels(), Config{MaxConcurrent: 1})
	path := writeRecording(t, "call.wav")

	_, err := p.Process(context.Background(), path)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestProcess_EmptyTranscriptIsNotAnError(t *testing.T) {
	sttAdapter := &sttmock.Adapter{Segments: nil, Language: "en"}
	diarizer := &diarizemock.Adapter{Segments: nil}
	p := New(sttAdapter, diarizer, &stubNormalizer{}, transcript.DefaultLabels(), Config{MaxConcurrent: 1})
	path := writeRecording(t, "silent.wav")

	result, err := p.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process returned error for silent recording: %v", err)
	}
	if len(result.Conversation) != 0 {
		t.Errorf("expected empty conversation, got %d turns", len(result.Conversation))
	}
	if result.Metadata.Duration != 0 {
		t.Errorf("expected zero duration, got %g", result.Metadata.Duration)
	}
	if result.Metadata.SpeakersDetected != 0 {
		t.Errorf("expected zero speakers, got %d", result.Metadata.SpeakersDetected)
	}
}

func TestProcess_EmptyDiarizationYieldsUnknown(t *testing.T) {
	diarizer := &diarizemock.Adapter{Segments: nil}
	p := New(sttmock.New(), diarizer, &stubNormalizer{}, transcript.DefaultLabels(), Config{MaxConcurrent: 1})
	path := writeRecording(t, "call.wav")

	result, err := p.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	for i, turn := range result.Conversation {
		if turn.Speaker != transcript.UnknownSpeaker {
			t.Errorf("turn %d: expected %q, got %q", i, transcript.UnknownSpeaker, turn.Speaker)
		}
	}
}

func TestProcessBatch_IsolatesFailures(t *testing.T) {
	p := newTestPipeline(&stubNormalizer{})

	good1 := writeRecording(t, "a.wav")
	bad := writeRecording(t, "b.flac") // unsupported container
	good2 := writeRecording(t, "c.mp3")

	summary := p.ProcessBatch(context.Background(), []string{good1, bad, good2})

	if summary.Succeeded != 2 {
		t.Errorf("expected 2 successes, got %d", summary.Succeeded)
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", summary.Failed)
	}
	if summary.Items[1].Err == nil {
		t.Error("expected error for unsupported item")
	}
	if summary.Items[0].Err != nil || summary.Items[2].Err != nil {
		t.Error("good items must not be affected by the failing one")
	}
	// Order of items matches order of inputs.
	if summary.Items[2].Path != good2 {
		t.Errorf("expected item 2 path %q, got %q", good2, summary.Items[2].Path)
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":           {nil, ""},
		"invalid":       {ErrInvalidInput, "invalid_input"},
		"normalization": {ErrNormalizationFailed, "normalization"},
		"inference":     {ErrInference, "inference"},
		"other":         {errors.New("boom"), "internal"},
	}
	for name, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}
