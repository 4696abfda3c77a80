// Package logging provides structured logging with zerolog.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithRecording returns a logger with recording context.
func WithRecording(filename, contentHash string) zerolog.Logger {
	return log.With().
		Str("file", filename).
		Str("contentHash", contentHash).
		Logger()
}

// WithStage returns a logger with pipeline stage context.
func WithStage(filename, stage, provider string) zerolog.Logger {
	return log.With().
		Str("file", filename).
		Str("stage", stage).
		Str("provider", provider).
		Logger()
}
