package grpc

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
)

const subscriberBuffer = 100

// Broadcaster fans session events out to stream subscribers. It satisfies
// dashboard.Publisher.
type Broadcaster struct {
	subscribers map[uint64]chan dashboard.Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
	metrics     *metrics.Collector
}

func NewBroadcaster(m *metrics.Collector) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan dashboard.Event),
		metrics:     m,
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan dashboard.Event) {
	id := b.nextID.Add(1)
	ch := make(chan dashboard.Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	b.metrics.SubscriberAdded()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		b.metrics.SubscriberRemoved()
	}
}

// Publish never blocks; events for a full subscriber are dropped.
func (b *Broadcaster) Publish(e dashboard.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
		b.metrics.SubscriberRemoved()
	}
}
