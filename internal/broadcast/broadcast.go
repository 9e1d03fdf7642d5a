// Package broadcast fans finished assessments out to in-process subscribers.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan *models.ImpactAssessment
	nextID      atomic.Uint64
	buffer      int
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.ImpactAssessment),
		buffer:      buffer,
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan *models.ImpactAssessment) {
	id := b.nextID.Add(1)
	ch := make(chan *models.ImpactAssessment, b.buffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks: a subscriber whose queue is full misses a.
func (b *Broadcaster) Broadcast(a *models.ImpactAssessment) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- a:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// Close closes all subscriber channels, ending their receive loops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
