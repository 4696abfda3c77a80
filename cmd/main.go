package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"call-transcription-service/internal/app"
	"call-transcription-service/internal/config"
	"call-transcription-service/internal/events"
	apihttp "call-transcription-service/internal/http"
	"call-transcription-service/internal/media"
	"call-transcription-service/internal/observability"
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

	ctx := context.Background()

	sttAdapter, sttReady, closeSTT, err := buildSTT(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Failed to build STT adapter")
	}
	defer closeSTT()

	diarizer, diarReady, err := buildDiarizer(cfg)
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

	// Observability server: /metrics, /healthz, /readyz. Readiness
	// reflects the reachability of both inference backends.
	obsServer := observability.NewServer(":"+cfg.Service.MetricsPort, func(ctx context.Context) bool {
		return sttReady(ctx) && diarReady(ctx)
	})
	obsServer.Start()

	handler := apihttp.NewHandler(
		cfg.Service.Name,
		pipe,
		persister,
		cfg.Pipeline.RecordingsDir,
		cfg.Pipeline.MaxUploadBytes,
		cfg.Pipeline.TmpDir,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      apihttp.NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // inference on long recordings is slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("stt", sttAdapter.Name()).
			Str("diarization", diarizer.Name()).
			Msg("Call transcription service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown failed")
	}
	application.Shutdown()
}

// buildSTT constructs the configured speech-to-text adapter along with
// its readiness probe and cleanup func.
func buildSTT(ctx context.Context, cfg *config.Configuration) (stt.Adapter, observability.ReadyCheck, func(), error) {
	noop := func() {}
	alwaysReady := func(context.Context) bool { return true }

	switch cfg.STT.Provider {
	case "whisper":
		var opts []whisper.Option
		if cfg.STT.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.STT.Language))
		}
		a, err := whisper.New(cfg.STT.WhisperURL, opts...)
		if err != nil {
			return nil, nil, noop, err
		}
		return a, a.IsAvailable, noop, nil
	case "google":
		a, err := google.New(ctx, cfg.STT.Language, int32(cfg.STT.SampleRateHz))
		if err != nil {
			return nil, nil, noop, err
		}
		return a, alwaysReady, func() { _ = a.Close() }, nil
	case "mock":
		return sttmock.New(), alwaysReady, noop, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)
	}
}

// buildDiarizer constructs the configured diarization adapter along
// with its readiness probe.
func buildDiarizer(cfg *config.Configuration) (diarize.Adapter, observability.ReadyCheck, error) {
	alwaysReady := func(context.Context) bool { return true }

	switch cfg.Diarization.Provider {
	case "pyannote":
		a, err := pyannote.New(pyannote.Config{
			BaseURL:     cfg.Diarization.PyannoteURL,
			MaxSpeakers: cfg.Diarization.MaxSpeakers,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, a.IsAvailable, nil
	case "mock":
		return diarmock.New(), alwaysReady, nil
	default:
		return nil, nil, fmt.Errorf("unknown diarization provider %q", cfg.Diarization.Provider)
	}
}
