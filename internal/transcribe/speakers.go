package transcribe

import "fmt"

// Turn is a diarization interval attributed to one speaker.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// GapThreshold is the pause length, in seconds, that switches speakers in
// GapDiarize.
const GapThreshold = 1.5

// AssignSpeakers labels every segment that has no speaker with the turn it
// overlaps most. Ties keep the earliest turn. A segment with no overlapping
// turn is labelled by its own index.
func AssignSpeakers(segments []Segment, turns []Turn) {
	for i := range segments {
		if segments[i].Speaker != "" {
			continue
		}
		best, bestOverlap := -1, 0.0
		for j, t := range turns {
			ov := overlap(segments[i].Start, segments[i].End, t.Start, t.End)
			if ov > bestOverlap {
				best, bestOverlap = j, ov
			}
		}
		if best >= 0 {
			segments[i].Speaker = turns[best].Speaker
			continue
		}
		segments[i].Speaker = fmt.Sprintf("SPEAKER_%02d", i)
	}
}

// GapDiarize alternates SPEAKER_00 and SPEAKER_01 whenever the pause before a
// segment exceeds GapThreshold. When some segments already carry a speaker,
// only the unlabelled ones are filled, each from the nearest earlier labelled
// segment (the first label for a leading run).
func GapDiarize(segments []Segment) {
	first := ""
	for _, s := range segments {
		if s.Speaker != "" {
			first = s.Speaker
			break
		}
	}
	if first != "" {
		prev := first
		for i := range segments {
			if segments[i].Speaker == "" {
				segments[i].Speaker = prev
			}
			prev = segments[i].Speaker
		}
		return
	}
	speaker := 0
	for i := range segments {
		if i > 0 && segments[i].Start-segments[i-1].End > GapThreshold {
			speaker = 1 - speaker
		}
		segments[i].Speaker = fmt.Sprintf("SPEAKER_%02d", speaker)
	}
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := max(aStart, bStart)
	hi := min(aEnd, bEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}
