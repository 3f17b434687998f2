// Package eventbus is an in-memory publish/subscribe bus.
// The search pipeline publishes discovered products on it; the wishlist
// product recorder consumes them off the request path.
//
// Design:
//   - Buffered Go channel per subscriber (buffer=100).
//   - Publish is non-blocking: drops the event if the buffer is full and logs it.
//   - Subscribe returns a read-only channel; the caller owns the consumption loop.
//   - Close closes every subscriber channel so consumption loops end.
//   - No persistence: events are fire-and-forget.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	closed      bool
	dropped     atomic.Int64
	log         logrus.FieldLogger
}

// New returns a new in-memory Bus. log may be nil.
func New(log logrus.FieldLogger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		log:         log.WithField("component", "eventbus"),
	}
}

// Subscribe registers a new subscriber for topic and returns a read-only channel.
// The caller must consume the channel or its events are dropped once the buffer fills.
// Subscribing to a closed bus returns a closed channel.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Publish sends an Event to all subscribers of topic.
// If a subscriber's buffer is full the event is dropped (non-blocking).
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			b.log.WithField("topic", topic).Warn("subscriber buffer full, event dropped")
		}
	}
}

// Dropped returns how many deliveries were dropped because a buffer was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
}
