package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"meeting_assistant/internal/executor"
)

// Normalize converts audioPath to a 16 kHz mono WAV in a temporary directory.
// The returned cleanup removes it.
func Normalize(ctx context.Context, exec executor.Executor, ffmpegBin, audioPath string) (string, func(), error) {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	dir, err := os.MkdirTemp("", "meeting-audio-")
	if err != nil {
		return "", func() {}, fmt.Errorf("normalize audio: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	out := filepath.Join(dir, base+"_16k.wav")
	if _, err := exec.Execute(ctx, ffmpegBin, "-y", "-i", audioPath, "-ac", "1", "-ar", "16000", "-f", "wav", out); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("%w: ffmpeg: %v", ErrAudioUnreadable, err)
	}
	return out, cleanup, nil
}
