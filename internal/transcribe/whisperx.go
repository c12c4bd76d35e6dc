package transcribe

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/executor"
)

//go:embed assets/whisperx_runner.py
var runnerScript []byte

// WhisperX runs speech-to-text, alignment and diarization through a local
// Python helper.
type WhisperX struct {
	cfg    config.WhisperConfig
	exec   executor.Executor
	logger *slog.Logger
}

func NewWhisperX(cfg config.WhisperConfig, exec executor.Executor, logger *slog.Logger) *WhisperX {
	if exec == nil {
		exec = executor.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperX{cfg: cfg, exec: exec, logger: logger.With("component", "whisperx")}
}

type runnerOutput struct {
	Segments []struct {
		Start   float64  `json:"start"`
		End     float64  `json:"end"`
		Text    string   `json:"text"`
		Speaker string   `json:"speaker"`
		Score   *float64 `json:"score"`
	} `json:"segments"`
	Turns []Turn `json:"turns"`
}

func (w *WhisperX) Process(ctx context.Context, audioPath string) ([]Segment, error) {
	if err := Validate(audioPath); err != nil {
		return nil, err
	}
	input := audioPath
	if w.cfg.Normalize {
		normalized, cleanup, err := Normalize(ctx, w.exec, w.cfg.FFMPEGBin, audioPath)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		input = normalized
	}

	script, err := os.CreateTemp("", "whisperx_runner-*.py")
	if err != nil {
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	defer os.Remove(script.Name())
	if _, err := script.Write(runnerScript); err != nil {
		script.Close()
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	script.Close()

	device := w.cfg.Device
	if device == "" {
		device = "auto"
	}
	args := []string{script.Name(),
		"--audio", input,
		"--model", w.cfg.Model,
		"--language", w.cfg.Language,
		"--device", device,
		"--compute-type", ComputeType(device),
		"--batch-size", strconv.Itoa(w.cfg.BatchSize),
	}
	var env []string
	if w.cfg.HFToken != "" {
		env = append(env, "HF_TOKEN="+w.cfg.HFToken)
	}

	start := time.Now()
	w.logger.Info("transcribing", "audio", audioPath, "model", w.cfg.Model, "device", device)
	out, err := w.exec.ExecuteWithEnv(ctx, env, w.cfg.Python, args...)
	if err != nil {
		return nil, fmt.Errorf("whisperx helper: %w", err)
	}
	segments, err := decodeRunnerOutput([]byte(out))
	if err != nil {
		return nil, err
	}
	w.logger.Info("transcribed", "audio", audioPath, "segments", len(segments), "elapsed", time.Since(start).Round(time.Millisecond))
	return segments, nil
}

// decodeRunnerOutput turns helper JSON into labelled segments. Diarization
// turns are preferred; without them speakers follow pauses.
func decodeRunnerOutput(data []byte) ([]Segment, error) {
	var parsed runnerOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse helper output: %w", err)
	}
	segments := make([]Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		end := s.End
		if end < s.Start {
			end = s.Start
		}
		segments = append(segments, Segment{
			Speaker:    strings.TrimSpace(s.Speaker),
			Start:      s.Start,
			End:        end,
			Text:       strings.TrimSpace(s.Text),
			Confidence: s.Score,
		})
	}
	if len(parsed.Turns) > 0 {
		AssignSpeakers(segments, parsed.Turns)
	} else {
		GapDiarize(segments)
	}
	return segments, nil
}
