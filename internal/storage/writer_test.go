package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"call-transcription-service/internal/models"
)

func sampleResult() *models.TranscriptionResult {
	return &models.TranscriptionResult{
		Metadata: models.Metadata{
			Filename:         "call.webm",
			Duration:         125.4,
			Language:         "en",
			SpeakersDetected: 2,
			ProcessedAt:      time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC),
		},
		Conversation: []models.ConversationTurn{
			{Start: 0, End: 3.2, Speaker: "Agent", Text: "Thank you for calling."},
			{Start: 3.8, End: 7.5, Speaker: "Customer", Text: "Hi, I have a question."},
			{Start: 65.0, End: 70.1, Speaker: "UNKNOWN", Text: "Inaudible crosstalk."},
		},
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	want := sampleResult()
	jsonPath, txtPath, err := w.Save(want, "deadbeef")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if base := filepath.Base(jsonPath); base != "call_deadbeef_transcript.json" {
		t.Errorf("unexpected json artifact name %q", base)
	}
	if base := filepath.Base(txtPath); base != "call_deadbeef_transcript.txt" {
		t.Errorf("unexpected txt artifact name %q", base)
	}

	got, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(got.Conversation, want.Conversation) {
		t.Errorf("conversation did not round-trip:\nwant %+v\ngot  %+v", want.Conversation, got.Conversation)
	}
	if !got.Metadata.ProcessedAt.Equal(want.Metadata.ProcessedAt) {
		t.Errorf("processed_at did not round-trip: want %v, got %v",
			want.Metadata.ProcessedAt, got.Metadata.ProcessedAt)
	}
	if got.Metadata.Duration != want.Metadata.Duration {
		t.Errorf("duration did not round-trip: want %g, got %g",
			want.Metadata.Duration, got.Metadata.Duration)
	}
}

func TestSave_TextRendering(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	_, txtPath, err := w.Save(sampleResult(), "deadbeef")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(txtPath)
	if err != nil {
		t.Fatalf("read txt artifact: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"File: call.webm",
		"Duration: 00:02:05",
		"[00:00:00] Agent: Thank you for calling.",
		"[00:00:03] Customer: Hi, I have a question.",
		"[00:01:05] UNKNOWN: Inaudible crosstalk.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text artifact missing %q\n---\n%s", want, text)
		}
	}
}

func TestSave_IdenticalContentOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	result := sampleResult()
	if _, _, err := w.Save(result, "deadbeef"); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}
	if _, _, err := w.Save(result, "deadbeef"); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 artifacts after idempotent re-save, got %d", len(entries))
	}
}

func TestContentHash_DistinguishesContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(a, []byte("content one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("content two"), 0o644); err != nil {
		t.Fatal(err)
	}

	ha, err := ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash returned error: %v", err)
	}
	hb, err := ContentHash(b)
	if err != nil {
		t.Fatalf("ContentHash returned error: %v", err)
	}

	if len(ha) != 8 {
		t.Errorf("expected 8-char hash, got %q", ha)
	}
	if ha == hb {
		t.Error("different content must produce different hashes")
	}

	again, err := ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash returned error: %v", err)
	}
	if ha != again {
		t.Errorf("hash not stable: %q vs %q", ha, again)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00:00",
		59.9:    "00:00:59",
		61:      "00:01:01",
		3725.2:  "01:02:05",
		36000:   "10:00:00",
	}
	for in, want := range cases {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%g): expected %q, got %q", in, want, got)
		}
	}
}
