package event_test

import (
	"testing"
	"time"

	"github.com/shizuo-kaji/markov-game/internal/event"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := event.NewBus(4)
	ch, unsubscribe := bus.Subscribe("sink")
	defer unsubscribe()

	bus.Publish(event.Event{Type: event.TypeGameStart, RoomID: "r1", OccurredAt: time.Now()})

	select {
	case ev := <-ch:
		if ev.Type != event.TypeGameStart || ev.RoomID != "r1" {
			t.Errorf("got %+v, want game_start for r1", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := event.NewBus(1)
	_, unsubscribe := bus.Subscribe("slow")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Buffer is 1; excess publishes must be dropped, not block.
		for i := 0; i < 10; i++ {
			bus.Publish(event.Event{Type: event.TypeMoveSubmitted, RoomID: "r1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := event.NewBus(1)
	ch, unsubscribe := bus.Subscribe("gone")
	unsubscribe()
	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", bus.SubscriberCount())
	}
}
