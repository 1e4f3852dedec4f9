package monitor

import (
	"errors"
	"sync"
	"testing"

	"github.com/ashureev/scratchat/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_SubscribeAndPublish(t *testing.T) {
	hub := NewHub(4)
	sub, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	hub.Publish(domain.Event{Type: domain.EventChatLine, Speaker: "bob"})

	got := <-sub.Events()
	if got.Type != domain.EventChatLine || got.Speaker != "bob" {
		t.Errorf("unexpected event %+v", got)
	}
	if hub.Count() != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.Count())
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(4)
	sub, _ := hub.Subscribe()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("expected channel closed after unsubscribe")
	}
	if hub.Count() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.Count())
	}
}

func TestHub_UnsubscribeStale(t *testing.T) {
	hub := NewHub(4)
	sub1, _ := hub.Subscribe()
	sub2, _ := hub.Subscribe()

	stale := &Subscriber{ID: sub2.ID, events: make(chan domain.Event)}
	hub.Unsubscribe(stale)
	hub.Unsubscribe(sub1)

	if hub.Count() != 1 {
		t.Errorf("expected the live subscriber to remain, got %d", hub.Count())
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(1)
	sub, _ := hub.Subscribe()

	hub.Publish(domain.Event{Type: "a"})
	hub.Publish(domain.Event{Type: "b"})
	hub.Publish(domain.Event{Type: "c"})

	if hub.Dropped() != 2 {
		t.Errorf("expected 2 drops, got %d", hub.Dropped())
	}
	if got := <-sub.Events(); got.Type != "a" {
		t.Errorf("expected oldest event kept, got %q", got.Type)
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1)
	sub, _ := hub.Subscribe()

	hub.Close()
	hub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("expected channel closed on hub close")
	}
	if _, err := hub.Subscribe(); !errors.Is(err, ErrHubClosed) {
		t.Errorf("expected ErrHubClosed, got %v", err)
	}
	hub.Publish(domain.Event{Type: "late"})
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub(8)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := hub.Subscribe()
			if err != nil {
				return
			}
			for j := 0; j < 50; j++ {
				hub.Publish(domain.Event{Type: "tick"})
			}
			hub.Unsubscribe(sub)
		}()
	}
	wg.Wait()

	if hub.Count() != 0 {
		t.Errorf("expected all subscribers gone, got %d", hub.Count())
	}
}
