// Package storage persists transcription results. Each recording yields
// two views of one TranscriptionResult: a machine-readable JSON record
// and a human-readable text rendering. Output base names are qualified
// with a content hash of the source audio so re-processing identical
// content overwrites its own artifacts while same-named recordings with
// different content never collide.
package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"call-transcription-service/internal/models"
)

// hashLen is the number of hex characters of the blake3 digest used to
// qualify output filenames.
const hashLen = 8

// ContentHash returns a short blake3 digest of the file's contents.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("storage: open for hashing: %w", err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("storage: hash contents: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen], nil
}

// Writer persists transcription artifacts under a single output
// directory. The directory is append-only: new files per recording.
type Writer struct {
	outputDir string
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create output dir: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// Save writes both artifact views for one result and returns their
// paths. hash qualifies the base name (see ContentHash).
func (w *Writer) Save(result *models.TranscriptionResult, hash string) (jsonPath, txtPath string, err error) {
	base := strings.TrimSuffix(result.Metadata.Filename, filepath.Ext(result.Metadata.Filename))
	if hash != "" {
		base = base + "_" + hash
	}
	jsonPath = filepath.Join(w.outputDir, base+"_transcript.json")
	txtPath = filepath.Join(w.outputDir, base+"_transcript.txt")

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("storage: marshal result: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("storage: write json artifact: %w", err)
	}

	if err := os.WriteFile(txtPath, []byte(renderText(result)), 0o644); err != nil {
		return "", "", fmt.Errorf("storage: write text artifact: %w", err)
	}
	return jsonPath, txtPath, nil
}

// Load reads a previously saved JSON artifact back into a result.
func Load(jsonPath string) (*models.TranscriptionResult, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("storage: read json artifact: %w", err)
	}
	var result models.TranscriptionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("storage: unmarshal json artifact: %w", err)
	}
	return &result, nil
}

// renderText produces the human-readable transcript view: a short header
// followed by one "[HH:MM:SS] <speaker>: <text>" line per turn.
func renderText(result *models.TranscriptionResult) string {
	var b strings.Builder
	meta := result.Metadata

	b.WriteString("Call Transcription\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "File: %s\n", meta.Filename)
	fmt.Fprintf(&b, "Duration: %s\n", FormatTimestamp(meta.Duration))
	fmt.Fprintf(&b, "Language: %s\n", meta.Language)
	fmt.Fprintf(&b, "Speakers: %d\n", meta.SpeakersDetected)
	fmt.Fprintf(&b, "Date: %s\n\n", meta.ProcessedAt.Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString("Conversation:\n")
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	for _, turn := range result.Conversation {
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", FormatTimestamp(turn.Start), turn.Speaker, turn.Text)
	}
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS, truncating fractions.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
