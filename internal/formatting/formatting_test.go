package formatting

import (
	"testing"
	"time"
)

func TestTitleFromFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"TeamSync_2025_03_04_10_00_00.m4a", "Team Sync"},
		{"/inbox/weekly-planning-2025-03-04.mp3", "weekly planning"},
		{"retro.wav", "retro"},
		{"2025_03_04.wav", "2025_03_04"},
		{"board_meeting_v2_01.flac", "board meeting v2"},
	}
	for _, c := range cases {
		if got := TitleFromFilename(c.in); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestDateFromFilename(t *testing.T) {
	got, ok := DateFromFilename("TeamSync_2025_03_04_10_15_30.m4a", time.UTC)
	if !ok {
		t.Fatal("expected a date")
	}
	want := time.Date(2025, time.March, 4, 10, 15, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	dateOnly, ok := DateFromFilename("planning-2024-12-31.mp3", time.UTC)
	if !ok || !dateOnly.Equal(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date-only result %v %v", dateOnly, ok)
	}

	for _, bad := range []string{"retro.wav", "call_2025_02_30.wav", "call_2025_13_01.wav"} {
		if _, ok := DateFromFilename(bad, time.UTC); ok {
			t.Errorf("%s: expected no date", bad)
		}
	}
}
