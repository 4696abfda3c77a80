package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"call-transcription-service/internal/events"
	"call-transcription-service/internal/models"
	"call-transcription-service/internal/storage"
)

// Persister writes transcript artifacts and fans the completion out to
// the recordings index and the event publisher. Index and Publisher are
// optional; artifact writing is not.
type Persister struct {
	Writer    *storage.Writer
	Index     *storage.Index
	Publisher *events.Publisher
}

// Persist hashes the source audio, saves both artifact views, updates
// the index and publishes the completion event. Index and publish
// failures are logged but do not fail the recording: the artifacts on
// disk are the source of truth.
func (p *Persister) Persist(ctx context.Context, audioPath string, result *models.TranscriptionResult) (jsonPath, txtPath string, err error) {
	hash, err := storage.ContentHash(audioPath)
	if err != nil {
		return "", "", fmt.Errorf("persist: %w", err)
	}

	jsonPath, txtPath, err = p.Writer.Save(result, hash)
	if err != nil {
		return "", "", fmt.Errorf("persist: %w", err)
	}

	if p.Index != nil {
		rec := storage.RecordingRecord{
			Hash:        hash,
			Filename:    result.Metadata.Filename,
			Duration:    result.Metadata.Duration,
			Language:    result.Metadata.Language,
			Speakers:    result.Metadata.SpeakersDetected,
			Turns:       len(result.Conversation),
			JSONPath:    jsonPath,
			TxtPath:     txtPath,
			ProcessedAt: result.Metadata.ProcessedAt,
		}
		if err := p.Index.Upsert(ctx, rec); err != nil {
			log.Warn().Err(err).Str("file", result.Metadata.Filename).Msg("Failed to index recording")
		}
	}

	if p.Publisher != nil {
		event := events.NewTranscriptCompleted(result, hash, jsonPath)
		if err := p.Publisher.PublishCompleted(ctx, event); err != nil {
			log.Warn().Err(err).Str("file", result.Metadata.Filename).Msg("Failed to publish completion event")
		}
	}

	return jsonPath, txtPath, nil
}
