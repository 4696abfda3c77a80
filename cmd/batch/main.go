// Command batch processes every supported recording in the recordings
// directory and writes transcript artifacts for each, printing a
// per-file summary at the end. Recordings that fail are reported and
// skipped; they never abort the run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"call-transcription-service/internal/app"
	"call-transcription-service/internal/config"
	"call-transcription-service/internal/events"
	"call-transcription-service/internal/media"
	"call-transcription-service/internal/pipeline"
	"call-transcription-service/internal/service/diarize"
	diarmock "call-transcription-service/internal/service/diarize/mock"
	"call-transcription-service/internal/service/diarize/pyannote"
	"call-transcription-service/internal/service/stt"
	"call-transcription-service/internal/service/stt/google"
	sttmock "call-transcription-service/internal/service/stt/mock"
	"call-transcription-service/internal/service/stt/whisper"
	"call-transcription-service/internal/storage"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordings, err := findRecordings(cfg.Pipeline.RecordingsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Pipeline.RecordingsDir).Msg("Failed to scan recordings directory")
	}
	if len(recordings) == 0 {
		fmt.Printf("No recordings found in %s (accepted: %v)\n", cfg.Pipeline.RecordingsDir, media.SupportedFormats)
		return
	}

	sttAdapter, closeSTT, err := buildSTT(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Failed to build STT adapter")
	}
	defer closeSTT()

	diarizer, err := buildDiarizer(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Diarization.Provider).Msg("Failed to build diarization adapter")
	}

	pipe := pipeline.New(sttAdapter, diarizer, &media.Normalizer{}, nil, pipeline.Config{
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
		TmpDir:        cfg.Pipeline.TmpDir,
	})

	writer, err := storage.NewWriter(cfg.Pipeline.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Pipeline.OutputDir).Msg("Failed to create output directory")
	}
	index, err := storage.OpenIndex(cfg.Pipeline.IndexPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Pipeline.IndexPath).Msg("Failed to open recordings index")
	}
	defer index.Close()

	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	})
	defer publisher.Close()

	persister := &pipeline.Persister{
		Writer:    writer,
		Index:     index,
		Publisher: publisher,
	}

	fmt.Printf("Processing %d recording(s) from %s\n\n", len(recordings), cfg.Pipeline.RecordingsDir)
	summary := pipe.ProcessBatch(ctx, recordings)

	persistFailures := 0
	for i := range summary.Items {
		item := &summary.Items[i]
		if item.Err != nil {
			continue
		}
		if _, _, err := persister.Persist(ctx, item.Path, item.Result); err != nil {
			log.Error().Err(err).Str("file", filepath.Base(item.Path)).Msg("Failed to persist artifacts")
			item.Err = err
			persistFailures++
		}
	}
	summary.Succeeded -= persistFailures
	summary.Failed += persistFailures

	printSummary(summary)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// findRecordings returns the supported audio files directly under dir,
// sorted by name.
func findRecordings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !media.IsSupported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

func printSummary(summary pipeline.BatchSummary) {
	fmt.Println("\nBatch summary")
	fmt.Println("=============")
	for _, item := range summary.Items {
		name := filepath.Base(item.Path)
		if item.Err != nil {
			fmt.Printf("  FAIL  %s: %v\n", name, item.Err)
			continue
		}
		fmt.Printf("  OK    %s: %d turns, %d speaker(s), %s\n",
			name,
			len(item.Result.Conversation),
			item.Result.Metadata.SpeakersDetected,
			storage.FormatTimestamp(item.Result.Metadata.Duration))
	}
	fmt.Printf("\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
}

func buildSTT(ctx context.Context, cfg *config.Configuration) (stt.Adapter, func(), error) {
	noop := func() {}

	switch cfg.STT.Provider {
	case "whisper":
		var opts []whisper.Option
		if cfg.STT.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.STT.Language))
		}
		a, err := whisper.New(cfg.STT.WhisperURL, opts...)
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil
	case "google":
		a, err := google.New(ctx, cfg.STT.Language, int32(cfg.STT.SampleRateHz))
		if err != nil {
			return nil, noop, err
		}
		return a, func() { _ = a.Close() }, nil
	case "mock":
		return sttmock.New(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)
	}
}

func buildDiarizer(cfg *config.Configuration) (diarize.Adapter, error) {
	switch cfg.Diarization.Provider {
	case "pyannote":
		return pyannote.New(pyannote.Config{
			BaseURL:     cfg.Diarization.PyannoteURL,
			MaxSpeakers: cfg.Diarization.MaxSpeakers,
		})
	case "mock":
		return diarmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown diarization provider %q", cfg.Diarization.Provider)
	}
}
