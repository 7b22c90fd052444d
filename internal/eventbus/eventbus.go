package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is anything published on the bus. Consumers switch on the concrete
// type.
type Event interface{}

// EventBus fans events out to subscribers.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

const defaultBuffer = 8

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the channel capacity given to each subscriber.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// Bus is the default EventBus. Publishing never blocks the simulation: an
// event a subscriber has no room for is dropped and counted.
type Bus struct {
	buffer  int
	dropped atomic.Uint64

	mu     sync.RWMutex
	subs   map[<-chan Event]chan Event
	closed bool
}

func New(opts ...Option) *Bus {
	b := &Bus{buffer: defaultBuffer, subs: make(map[<-chan Event]chan Event)}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a new subscription. After Close it returns a closed
// channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe closes sub. Unknown or already closed subscriptions are
// ignored.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(ch)
	}
}

// Close closes every subscription. Later publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for k, ch := range b.subs {
		close(ch)
		delete(b.subs, k)
	}
}

// Dropped returns the number of deliveries skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
