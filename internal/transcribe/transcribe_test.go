package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meeting_assistant/internal/config"
)

type fakeExecutor struct {
	out  string
	err  error
	name string
	args []string
	env  []string
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return f.ExecuteWithEnv(ctx, nil, name, args...)
}

func (f *fakeExecutor) ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) (string, error) {
	f.name, f.args, f.env = name, args, env
	return f.out, f.err
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	if err := Validate(writeAudio(t, "standup.m4a")); err != nil {
		t.Fatalf("expected valid audio, got %v", err)
	}
	if err := Validate(writeAudio(t, "notes.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if err := Validate(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, ErrAudioUnreadable) {
		t.Fatalf("expected unreadable, got %v", err)
	}
	empty := filepath.Join(t.TempDir(), "empty.wav")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Validate(empty); !errors.Is(err, ErrAudioUnreadable) {
		t.Fatalf("expected unreadable for empty file, got %v", err)
	}
}

func TestAssignSpeakersMaxOverlap(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 4},
		{Start: 4, End: 6},
		{Start: 10, End: 11},
		{Speaker: "SPEAKER_09", Start: 0, End: 1},
	}
	turns := []Turn{
		{Start: 0, End: 1, Speaker: "SPEAKER_01"},
		{Start: 1, End: 5, Speaker: "SPEAKER_00"},
		{Start: 5, End: 7, Speaker: "SPEAKER_01"},
	}
	AssignSpeakers(segments, turns)
	want := []string{"SPEAKER_00", "SPEAKER_00", "SPEAKER_02", "SPEAKER_09"}
	for i, w := range want {
		if segments[i].Speaker != w {
			t.Fatalf("segment %d: got %s want %s", i, segments[i].Speaker, w)
		}
	}
}

func TestAssignSpeakersTieKeepsEarliestTurn(t *testing.T) {
	segments := []Segment{{Start: 1, End: 3}}
	AssignSpeakers(segments, []Turn{
		{Start: 0, End: 2, Speaker: "SPEAKER_01"},
		{Start: 2, End: 4, Speaker: "SPEAKER_00"},
	})
	if segments[0].Speaker != "SPEAKER_01" {
		t.Fatalf("expected earliest turn, got %s", segments[0].Speaker)
	}
}

func TestGapDiarize(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 1},
		{Start: 1.5, End: 2},
		{Start: 4, End: 5},
		{Start: 7, End: 8},
	}
	GapDiarize(segments)
	want := []string{"SPEAKER_00", "SPEAKER_00", "SPEAKER_01", "SPEAKER_00"}
	for i, w := range want {
		if segments[i].Speaker != w {
			t.Fatalf("segment %d: got %s want %s", i, segments[i].Speaker, w)
		}
	}
}

func TestGapDiarizeFillsPartialLabels(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 1},
		{Start: 1, End: 2, Speaker: "SPEAKER_03"},
		{Start: 5, End: 6},
		{Start: 6, End: 7, Speaker: "SPEAKER_01"},
		{Start: 9, End: 10},
	}
	GapDiarize(segments)
	want := []string{"SPEAKER_03", "SPEAKER_03", "SPEAKER_03", "SPEAKER_01", "SPEAKER_01"}
	for i, w := range want {
		if segments[i].Speaker != w {
			t.Fatalf("segment %d: got %q want %s", i, segments[i].Speaker, w)
		}
	}

	decoded, err := decodeRunnerOutput([]byte(`{"segments":[{"start":0,"end":1,"text":"a","speaker":"SPEAKER_05"},{"start":1,"end":2,"text":"b"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if decoded[1].Speaker != "SPEAKER_05" {
		t.Fatalf("unlabelled sidecar segment left as %q", decoded[1].Speaker)
	}
}

func TestDecodeRunnerOutputClampsAndTrims(t *testing.T) {
	segments, err := decodeRunnerOutput([]byte(`{"segments":[{"start":2,"end":1,"text":"  hello ","score":0.9}],"turns":[{"start":0,"end":3,"speaker":"SPEAKER_03"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	s := segments[0]
	if s.End != 2 || s.Text != "hello" || s.Speaker != "SPEAKER_03" {
		t.Fatalf("unexpected segment %+v", s)
	}
	if s.Confidence == nil || *s.Confidence != 0.9 {
		t.Fatalf("confidence not carried: %v", s.Confidence)
	}
}

func TestDecodeRunnerOutputEmpty(t *testing.T) {
	segments, err := decodeRunnerOutput([]byte(`{"segments":[],"turns":[]}`))
	if err != nil || len(segments) != 0 {
		t.Fatalf("expected empty result, got %v %v", segments, err)
	}
}

func TestWhisperXRunsHelper(t *testing.T) {
	audio := writeAudio(t, "review.wav")
	exec := &fakeExecutor{out: `{"segments":[{"start":0,"end":2,"text":"hi"},{"start":5,"end":6,"text":"bye"}],"turns":[]}`}
	engine := NewWhisperX(config.WhisperConfig{
		Python: "python3", Model: "large-v3", Language: "tr", Device: "cuda", BatchSize: 8, HFToken: "hf_secret",
	}, exec, nil)

	segments, err := engine.Process(context.Background(), audio)
	if err != nil {
		t.Fatal(err)
	}
	if exec.name != "python3" {
		t.Fatalf("unexpected interpreter %s", exec.name)
	}
	joined := strings.Join(exec.args, " ")
	for _, want := range []string{"--audio " + audio, "--model large-v3", "--language tr", "--device cuda", "--compute-type float16", "--batch-size 8"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
	if len(exec.env) != 1 || exec.env[0] != "HF_TOKEN=hf_secret" {
		t.Fatalf("unexpected env %v", exec.env)
	}
	if len(segments) != 2 || segments[0].Speaker != "SPEAKER_00" || segments[1].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestWhisperXPropagatesHelperFailure(t *testing.T) {
	audio := writeAudio(t, "review.wav")
	boom := errors.New("exit status 1")
	_, err := NewWhisperX(config.WhisperConfig{Python: "python3"}, &fakeExecutor{err: boom}, nil).Process(context.Background(), audio)
	if !errors.Is(err, boom) {
		t.Fatalf("expected helper error, got %v", err)
	}
}

func TestStubUsesSidecar(t *testing.T) {
	audio := writeAudio(t, "sync.mp3")
	sidecar := `{"segments":[{"start":0,"end":1,"text":"a","speaker":"SPEAKER_05"}]}`
	if err := os.WriteFile(audio+".segments.json", []byte(sidecar), 0o644); err != nil {
		t.Fatal(err)
	}
	segments, err := New(config.WhisperConfig{UseStub: true}, nil, nil).Process(context.Background(), audio)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 || segments[0].Speaker != "SPEAKER_05" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestStubCannedSegments(t *testing.T) {
	segments, err := NewStub(nil).Process(context.Background(), writeAudio(t, "sync.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 2 || segments[1].End != 4 {
		t.Fatalf("unexpected canned segments %+v", segments)
	}
}

func TestComputeType(t *testing.T) {
	cases := map[string]string{"cuda": "float16", "cpu": "int8", "auto": "auto"}
	for device, want := range cases {
		if got := ComputeType(device); got != want {
			t.Fatalf("%s: got %s want %s", device, got, want)
		}
	}
}
