package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"call-transcription-service/internal/models"
	"call-transcription-service/internal/storage"
)

func TestPersister_WritesArtifacts(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(audio, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	writer, err := storage.NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	result := &models.TranscriptionResult{
		Metadata: models.Metadata{
			Filename:         "call.wav",
			Duration:         14.9,
			Language:         "en",
			SpeakersDetected: 2,
			ProcessedAt:      time.Now().UTC(),
		},
		Conversation: []models.ConversationTurn{
			{Start: 0, End: 3.2, Speaker: "Agent", Text: "Hello"},
		},
	}

	p := &Persister{Writer: writer}
	jsonPath, txtPath, err := p.Persist(context.Background(), audio, result)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Errorf("json artifact missing: %v", err)
	}
	if _, err := os.Stat(txtPath); err != nil {
		t.Errorf("txt artifact missing: %v", err)
	}

	loaded, err := storage.Load(jsonPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Conversation) != 1 || loaded.Conversation[0].Speaker != "Agent" {
		t.Errorf("unexpected conversation after round-trip: %+v", loaded.Conversation)
	}
}

func TestPersister_MissingAudio(t *testing.T) {
	writer, err := storage.NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	p := &Persister{Writer: writer}
	_, _, err = p.Persist(context.Background(), "/does/not/exist.wav", &models.TranscriptionResult{
		Metadata: models.Metadata{Filename: "exist.wav"},
	})
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
}
