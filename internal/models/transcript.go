// Package models defines the data structures for transcription results.
package models

import "time"

// TranscriptSegment is one unit of recognized speech produced by the
// speech-to-text adapter. Segments arrive in non-decreasing start order;
// gaps between adjacent segments are silence or non-speech.
type TranscriptSegment struct {
	Start float64 `json:"start"` // seconds from recording start
	End   float64 `json:"end"`   // seconds, always > Start
	Text  string  `json:"text"`  // raw recognized text, may carry surrounding whitespace
}

// SpeakerSegment is one contiguous single-speaker interval produced by the
// diarization adapter. The Speaker label is an opaque per-recording id
// (e.g. "SPEAKER_00") that is not stable across recordings. Segments are
// not guaranteed to be ordered or contiguous.
type SpeakerSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// ConversationTurn is one attributed utterance in the final transcript.
// Exactly one turn is emitted per transcript segment.
type ConversationTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"` // resolved role label, or "UNKNOWN"
	Text    string  `json:"text"`    // trimmed utterance
}

// Metadata carries recording-level facts computed from the raw adapter
// outputs, not from the merged conversation.
type Metadata struct {
	Filename         string    `json:"filename"`
	Duration         float64   `json:"duration"` // end of last transcript segment, 0 if none
	Language         string    `json:"language"`
	SpeakersDetected int       `json:"speakers_detected"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// TranscriptionResult is the terminal artifact for one processed
// recording: the ordered conversation plus its metadata. It is immutable
// once assembled by the pipeline.
type TranscriptionResult struct {
	Metadata     Metadata           `json:"metadata"`
	Conversation []ConversationTurn `json:"conversation"`
}

// Transcription is the raw speech-to-text output for one recording:
// ordered segments plus the detected language code.
type Transcription struct {
	Segments []TranscriptSegment
	Language string
}
