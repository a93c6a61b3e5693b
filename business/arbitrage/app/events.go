package app

import (
	"sync"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

const defaultSubscriberBuffer = 64

// EventBus fans engine events out to subscribers. A subscriber that falls
// behind loses events rather than blocking the engine.
type EventBus struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan domain.Event
	dropped uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[int]chan domain.Event),
	}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *EventBus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *EventBus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

// Dropped counts deliveries skipped because a subscriber was full.
func (b *EventBus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Subscribers is the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
