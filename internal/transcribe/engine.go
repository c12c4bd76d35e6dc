// Package transcribe turns an audio file into ordered, speaker-labelled
// speech segments.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/executor"
)

var (
	ErrAudioUnreadable   = errors.New("audio file is unreadable")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

var supportedExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".webm": true, ".mp4": true,
}

// Segment is one contiguous stretch of speech attributed to one speaker.
// Speaker labels are opaque and not stable across runs.
type Segment struct {
	Speaker    string
	Start      float64
	End        float64
	Text       string
	Confidence *float64
}

// Engine transcribes and diarizes an audio file. Zero segments is a valid
// result.
type Engine interface {
	Process(ctx context.Context, audioPath string) ([]Segment, error)
}

// New selects the engine configured by cfg.
func New(cfg config.WhisperConfig, exec executor.Executor, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UseStub {
		return NewStub(logger)
	}
	return NewWhisperX(cfg, exec, logger)
}

// SupportedExtension reports whether the file name carries an accepted audio
// extension.
func SupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Validate checks that audioPath names a non-empty regular file with a
// supported extension.
func Validate(audioPath string) error {
	if strings.TrimSpace(audioPath) == "" {
		return fmt.Errorf("%w: empty path", ErrAudioUnreadable)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrAudioUnreadable, audioPath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrAudioUnreadable, audioPath)
	}
	if !SupportedExtension(audioPath) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(audioPath))
	}
	return nil
}

// ComputeType returns the inference precision for a device.
func ComputeType(device string) string {
	switch device {
	case "cuda":
		return "float16"
	case "cpu":
		return "int8"
	default:
		return "auto"
	}
}
