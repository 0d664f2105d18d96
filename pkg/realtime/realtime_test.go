package realtime

import (
	"testing"
	"time"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4)

	id1, ch1 := hub.Register()
	id2, ch2 := hub.Register()
	defer hub.Unregister(id1)
	defer hub.Unregister(id2)

	ev := FigureEvent{FigureID: "f1", OwnerID: "u1", Name: "Hatsune Miku"}
	hub.Publish(ev)

	for i, ch := range []<-chan FigureEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.FigureID != "f1" {
				t.Errorf("listener %d got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("listener %d did not receive event", i)
		}
	}
}

func TestSlowListenerDropsEvents(t *testing.T) {
	hub := NewHub(1)

	id, ch := hub.Register()
	defer hub.Unregister(id)

	hub.Publish(FigureEvent{FigureID: "f1"})
	hub.Publish(FigureEvent{FigureID: "f2"}) // dropped, buffer full

	got := <-ch
	if got.FigureID != "f1" {
		t.Errorf("first event = %+v", got)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected second event dropped, got %+v", extra)
	default:
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub(0)

	id, ch := hub.Register()
	hub.Unregister(id)
	hub.Unregister(id) // idempotent

	if _, open := <-ch; open {
		t.Error("expected channel closed after unregister")
	}
	if hub.ListenerCount() != 0 {
		t.Errorf("listener count = %d, want 0", hub.ListenerCount())
	}

	// Publishing with no listeners is a no-op.
	hub.Publish(FigureEvent{FigureID: "f1"})
}
