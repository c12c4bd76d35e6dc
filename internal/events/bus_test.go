package events

import "testing"

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBus()
	a, c := b.Subscribe(), b.Subscribe()
	b.Publish(Event{Type: MeetingStatusChanged, MeetingID: 7, Status: "failed"})
	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.MeetingID != 7 || ev.At.IsZero() {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	for i := 0; i < 40; i++ {
		b.Publish(Event{Type: ReportGenerated})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer, got %d", len(ch))
	}
	b.Close()
	if _, ok := <-ch; !ok {
		t.Fatal("buffered events should drain before close is observed")
	}
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	b.Publish(Event{Type: SummaryRegenerated})
}
