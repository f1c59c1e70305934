package stream

import (
	"encoding/json"
	"sync"

	"mobility-cloud/internal/observability/metrics"
)

const defaultBufferSize = 16

// Subscriber is a live viewer channel registered under one origin.
type Subscriber struct {
	origin string
	ch     chan []byte
}

// Origin returns the partition key this subscriber was registered under.
func (s *Subscriber) Origin() string { return s.origin }

// Events returns the delivery channel. The channel is never closed by the
// broker; consumers stop reading when their own context ends.
func (s *Subscriber) Events() <-chan []byte { return s.ch }

// Broker fans out reading events to subscribers, partitioned by origin.
// A subscriber only ever observes events published under its own origin.
type Broker struct {
	mu         sync.Mutex
	partitions map[string]map[*Subscriber]struct{}
	buffer     int
}

// Option configures the broker.
type Option func(*Broker)

// WithBufferSize overrides the per-subscriber buffer size.
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// NewBroker constructs a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		partitions: make(map[string]map[*Subscriber]struct{}),
		buffer:     defaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber under origin's partition, creating
// the partition on first use.
func (b *Broker) Subscribe(origin string) *Subscriber {
	sub := &Subscriber{origin: origin, ch: make(chan []byte, b.buffer)}
	b.mu.Lock()
	partition := b.partitions[origin]
	if partition == nil {
		partition = make(map[*Subscriber]struct{})
		b.partitions[origin] = partition
	}
	partition[sub] = struct{}{}
	b.mu.Unlock()
	metrics.StreamSubscribed()
	return sub
}

// Unsubscribe removes the subscriber; the partition entry is dropped when
// its last subscriber leaves.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if partition, ok := b.partitions[sub.origin]; ok {
		if _, ok := partition[sub]; ok {
			delete(partition, sub)
			metrics.StreamUnsubscribed()
		}
		if len(partition) == 0 {
			delete(b.partitions, sub.origin)
		}
	}
	b.mu.Unlock()
}

// Publish delivers event to every subscriber currently registered under
// origin. Delivery is fire-and-forget: a backed-up subscriber has its
// oldest buffered event dropped rather than blocking the publisher, and
// subscribers under other origins never observe the event.
func (b *Broker) Publish(origin string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.partitions[origin]))
	for sub := range b.partitions[origin] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		deliver(sub, payload)
	}
	if len(subs) > 0 {
		metrics.StreamPublished()
	}
}

// deliver pushes payload into the subscriber buffer, evicting the oldest
// entry when full.
func deliver(sub *Subscriber, payload []byte) {
	for {
		select {
		case sub.ch <- payload:
			return
		default:
		}
		select {
		case <-sub.ch:
			metrics.StreamDropped()
		default:
		}
	}
}
