package notify

import (
	"context"
	"sync"

	"hubwatch/internal/types"
)

// subscriberBuffer bounds how many events a slow subscriber may lag behind.
const subscriberBuffer = 4

// Broadcaster fans events out to in-process subscribers, typically one per
// open SSE stream. A subscriber whose buffer is full misses the event; the
// marker carries no state, so the next one is equivalent.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan types.DashboardChanged]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan types.DashboardChanged]struct{})}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan types.DashboardChanged, func()) {
	ch := make(chan types.DashboardChanged, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current number of subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Notify implements Notifier. It never blocks.
func (b *Broadcaster) Notify(_ context.Context, ev types.DashboardChanged) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}
