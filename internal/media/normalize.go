// Package media normalizes uploaded call audio into the 16 kHz mono WAV
// format both inference backends expect, using ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SupportedFormats is the fixed set of accepted input container
// extensions. Anything else is rejected before any model invocation.
var SupportedFormats = []string{".webm", ".mp3", ".wav", ".m4a"}

// IsSupported reports whether the file's extension is in the accepted
// set. The comparison is case-insensitive.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedFormats {
		if ext == s {
			return true
		}
	}
	return false
}

// Normalizer converts audio files with ffmpeg.
type Normalizer struct {
	// FFmpegPath overrides the ffmpeg binary name, for tests and
	// non-standard installs. Empty means "ffmpeg" on PATH.
	FFmpegPath string
}

// Normalize transcodes the recording at inputPath to a 16 kHz mono WAV
// file inside tmpDir and returns its path. The caller owns the returned
// file and must remove it when done. Inputs already in .wav format are
// still resampled, mirroring what the inference sidecars require.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, tmpDir string) (string, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(tmpDir, base+"_16k.wav")

	bin := n.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	// ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// A failed run can leave a partial output file behind.
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	return out, nil
}

// lastLine extracts the final non-empty stderr line, which is where
// ffmpeg puts its actual error message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
