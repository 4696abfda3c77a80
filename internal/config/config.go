// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Configuration holds all service settings.
type Configuration struct {
	Service       ServiceConfig
	Pipeline      PipelineConfig
	STT           STTConfig
	Diarization   DiarizationConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the process and its listen addresses.
type ServiceConfig struct {
	Name        string
	Principal   string
	HTTPPort    string
	MetricsPort string
	Env         string // "dev" switches to console log output
}

// PipelineConfig tunes recording processing.
type PipelineConfig struct {
	MaxConcurrent  int64  // concurrent recordings in model inference
	TmpDir         string // staging area for normalized WAV copies
	OutputDir      string // transcript artifacts
	RecordingsDir  string // root for path-based and batch processing
	IndexPath      string // sqlite index of processed recordings
	MaxUploadBytes int64
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Provider     string // "whisper", "google" or "mock"
	WhisperURL   string
	Language     string // hint for whisper, required code for google
	SampleRateHz int
}

// DiarizationConfig selects and configures the diarization backend.
type DiarizationConfig struct {
	Provider    string // "pyannote" or "mock"
	PyannoteURL string
	MaxSpeakers int
}

// KafkaConfig configures the transcript-completed event publisher.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present in the working directory.
func Load() *Configuration {
	_ = godotenv.Load()

	return &Configuration{
		Service: ServiceConfig{
			Name:        "call-transcription-service",
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-call-transcription"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8000"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
			Env:         os.Getenv("ENV"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:  envInt64("PIPELINE_MAX_CONCURRENT", 2),
			TmpDir:         envOrDefault("PIPELINE_TMP_DIR", ""),
			OutputDir:      envOrDefault("OUTPUT_DIR", "./output"),
			RecordingsDir:  envOrDefault("RECORDINGS_DIR", "./recordings"),
			IndexPath:      envOrDefault("INDEX_PATH", "./output/index.db"),
			MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 50*1024*1024),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			WhisperURL:   envOrDefault("WHISPER_SERVER_URL", "http://localhost:8080"),
			Language:     envOrDefault("STT_LANGUAGE", ""),
			SampleRateHz: envInt("STT_SAMPLE_RATE_HZ", 16000),
		},
		Diarization: DiarizationConfig{
			Provider:    envOrDefault("DIARIZATION_PROVIDER", "mock"),
			PyannoteURL: envOrDefault("PYANNOTE_URL", "http://localhost:8388"),
			MaxSpeakers: envInt("DIARIZATION_MAX_SPEAKERS", 2),
		},
		Kafka: KafkaConfig{
			Enabled:   envBool("KAFKA_ENABLED", false),
			Brokers:   envList("KAFKA_BROKERS"),
			Topic:     envOrDefault("KAFKA_TOPIC", "call.transcripts.completed"),
			Principal: envOrDefault("KAFKA_PRINCIPAL", "svc-call-transcription"),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
