package analytics

import (
	"context"
	"sync"

	"github.com/schemaforge/registry-core/pkg/model"
)

// Bus is a bounded fan-out channel of usage events. One publisher feeds
// many subscribers; a slow subscriber never blocks Publish for the
// others because each subscriber gets its own buffered channel.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan model.UsageEvent
	next int

	ch     chan model.UsageEvent
	done   chan struct{}
	closeOnce sync.Once
}

// NewBus starts a bus with the given publish-side buffer size.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		subs: map[int]chan model.UsageEvent{},
		ch:   make(chan model.UsageEvent, bufferSize),
		done: make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case event := <-b.ch:
			b.mu.RLock()
			for _, sub := range b.subs {
				select {
				case sub <- event:
				default:
					// subscriber buffer full; drop rather than block the bus.
				}
			}
			b.mu.RUnlock()
		case <-b.done:
			return
		}
	}
}

// Publish blocks until the event is queued or ctx is done.
func (b *Bus) Publish(ctx context.Context, event model.UsageEvent) error {
	select {
	case <-b.done:
		return context.Canceled
	default:
	}
	select {
	case b.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return context.Canceled
	}
}

// PublishAsync queues the event from a new goroutine and never blocks
// the caller.
func (b *Bus) PublishAsync(event model.UsageEvent) {
	go func() {
		select {
		case b.ch <- event:
		case <-b.done:
		}
	}()
}

// TryPublish queues the event if buffer space is immediately available,
// reporting whether it was accepted.
func (b *Bus) TryPublish(event model.UsageEvent) bool {
	select {
	case b.ch <- event:
		return true
	default:
		return false
	}
}

// Subscribe returns a receive channel of events and an unsubscribe func.
// The channel is buffered; events are dropped for this subscriber if it
// falls behind, not the whole bus.
func (b *Bus) Subscribe(bufferSize int) (<-chan model.UsageEvent, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	sub := make(chan model.UsageEvent, bufferSize)
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return sub, unsubscribe
}

// Close stops the dispatch loop. Subsequent Publish calls fail with
// context.Canceled.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
