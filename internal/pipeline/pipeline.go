// Package pipeline orchestrates the per-recording processing flow:
// normalize audio, run transcription and diarization concurrently, merge
// the two outputs into a speaker-attributed conversation, and assemble
// the final result with recording-level metadata.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"call-transcription-service/internal/media"
	"call-transcription-service/internal/models"
	"call-transcription-service/internal/observability/metrics"
	"call-transcription-service/internal/service/diarize"
	"call-transcription-service/internal/service/stt"
	"call-transcription-service/internal/service/transcript"
)

// Config holds pipeline tuning parameters.
type Config struct {
	// MaxConcurrent bounds the number of recordings in model inference
	// at once. Further requests queue on the worker semaphore rather
	// than piling unbounded load onto the inference backends.
	MaxConcurrent int64

	// TmpDir receives normalized WAV copies; they are removed on every
	// exit path. Empty means the OS temp directory.
	TmpDir string
}

// Normalizer converts an accepted recording into the normalized WAV
// format the adapters consume. media.Normalizer is the ffmpeg-backed
// production implementation.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, tmpDir string) (string, error)
}

// Pipeline processes complete call recordings. The two adapters are
// shared read-only across all recordings; a Pipeline is safe for
// concurrent use.
type Pipeline struct {
	stt      stt.Adapter
	diarizer diarize.Adapter
	norm     Normalizer
	labels   transcript.Labels
	metrics  *metrics.Metrics
	sem      *semaphore.Weighted
	tmpDir   string
}

// New constructs a Pipeline around the given adapters.
func New(sttAdapter stt.Adapter, diarizer diarize.Adapter, norm Normalizer, labels transcript.Labels, cfg Config) *Pipeline {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if labels == nil {
		labels = transcript.DefaultLabels()
	}
	return &Pipeline{
		stt:      sttAdapter,
		diarizer: diarizer,
		norm:     norm,
		labels:   labels,
		metrics:  metrics.DefaultMetrics,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		tmpDir:   cfg.TmpDir,
	}
}

// Process runs the full pipeline for one recording and returns its
// TranscriptionResult. The input file is validated before any model
// invocation; all temporary files are removed before returning.
func (p *Pipeline) Process(ctx context.Context, audioPath string) (*models.TranscriptionResult, error) {
	started := time.Now()
	p.metrics.RecordRecordingStart()

	result, err := p.process(ctx, audioPath)
	p.metrics.RecordRecordingEnd(ErrorKind(err), time.Since(started).Seconds())

	if err != nil {
		log.Error().
			Err(err).
			Str("file", filepath.Base(audioPath)).
			Str("kind", ErrorKind(err)).
			Msg("Recording processing failed")
		return nil, err
	}

	log.Info().
		Str("file", result.Metadata.Filename).
		Float64("duration", result.Metadata.Duration).
		Int("turns", len(result.Conversation)).
		Int("speakers", result.Metadata.SpeakersDetected).
		Str("language", result.Metadata.Language).
		Dur("elapsed", time.Since(started)).
		Msg("Recording processed")
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, audioPath string) (*models.TranscriptionResult, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, audioPath, err)
	}
	if !media.IsSupported(audioPath) {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, filepath.Ext(audioPath))
	}

	// Bound concurrent inference across recordings. Waiting here, before
	// the normalize step, keeps ffmpeg from filling the temp dir while
	// the inference backends are saturated.
	queued := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire worker slot: %w", err)
	}
	defer p.sem.Release(1)
	p.metrics.RecordQueueWait(time.Since(queued).Seconds())

	normStart := time.Now()
	wavPath, err := p.norm.Normalize(ctx, audioPath, p.tmpDir)
	p.metrics.RecordStage("normalize", "ffmpeg", err, time.Since(normStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNormalizationFailed, err)
	}
	defer os.Remove(wavPath)

	// Transcription and diarization have no data dependency; run them
	// concurrently. The merge below is the synchronization point.
	var (
		transcription *models.Transcription
		speakers      []models.SpeakerSegment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		tr, err := p.stt.Transcribe(gctx, wavPath)
		p.metrics.RecordStage("transcribe", p.stt.Name(), err, time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%w: transcribe (%s): %v", ErrInference, p.stt.Name(), err)
		}
		transcription = tr
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		segs, err := p.diarizer.Diarize(gctx, wavPath)
		p.metrics.RecordStage("diarize", p.diarizer.Name(), err, time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%w: diarize (%s): %v", ErrInference, p.diarizer.Name(), err)
		}
		speakers = segs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	conversation, err := transcript.Merge(transcription.Segments, speakers, p.labels)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	meta := buildMetadata(audioPath, transcription, speakers)
	unknown := 0
	for _, turn := range conversation {
		if turn.Speaker == transcript.UnknownSpeaker {
			unknown++
		}
	}
	p.metrics.RecordMerge(len(conversation), unknown, meta.SpeakersDetected, meta.Duration)

	return &models.TranscriptionResult{
		Metadata:     meta,
		Conversation: conversation,
	}, nil
}

// buildMetadata computes recording-level metadata from the raw adapter
// outputs, not from the merged conversation.
func buildMetadata(audioPath string, tr *models.Transcription, speakers []models.SpeakerSegment) models.Metadata {
	duration := 0.0
	if n := len(tr.Segments); n > 0 {
		duration = tr.Segments[n-1].End
	}

	distinct := make(map[string]struct{}, 2)
	for _, s := range speakers {
		distinct[s.Speaker] = struct{}{}
	}

	return models.Metadata{
		Filename:         filepath.Base(audioPath),
		Duration:         duration,
		Language:         tr.Language,
		SpeakersDetected: len(distinct),
		ProcessedAt:      time.Now().UTC(),
	}
}
