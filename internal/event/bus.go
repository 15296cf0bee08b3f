package event

import (
	"fmt"
	"sync"

	"github.com/shizuo-kaji/markov-game/internal/metrics"
)

// Bus fans events out to named subscribers over bounded buffered channels.
// Publish never blocks: a subscriber that falls behind loses events (counted
// in metrics) rather than stalling the game loop.
type Bus struct {
	mu     sync.RWMutex
	buffer int
	subs   map[string]chan Event
}

// NewBus creates a Bus whose subscriber queues hold up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{buffer: buffer, subs: make(map[string]chan Event)}
}

// Subscribe registers a named subscriber and returns its channel plus an
// unsubscribe function. Panics on duplicate name to surface misconfiguration
// early.
func (b *Bus) Subscribe(name string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subs[name]; exists {
		panic(fmt.Sprintf("event bus: duplicate subscriber %q", name))
	}
	ch := make(chan Event, b.buffer)
	b.subs[name] = ch
	return ch, func() { b.unsubscribe(name) }
}

func (b *Bus) unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[name]; ok {
		delete(b.subs, name)
		close(ch)
	}
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			metrics.EventsDropped.WithLabelValues(name).Inc()
		}
	}
}

// SubscriberCount returns how many subscribers are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
