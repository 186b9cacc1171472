// Package local is a process-local PubSub implementation: every
// Broadcast is delivered synchronously, in-process, to every current
// subscriber. It is the default bus for single-process deployments and
// for tests.
package local

import (
	"context"
	"log"
	"sync"

	eventrt "github.com/eventrt/eventrt"
)

// Bus is a process-local PubSub. It is concurrency-safe: Subscribe and
// Broadcast may be called from any number of goroutines.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]eventrt.Subscriber
	nextID int
	logger *log.Logger
}

// Option configures Bus.
type Option func(*Bus)

// WithLogger overrides the logger used to report a subscriber's delivery
// failure: Subscriber.Receive does not return an error, so the failures
// reported are subscriber panics that Broadcast recovers.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates a process-local Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[int]eventrt.Subscriber),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers sub to receive every future Broadcast.
func (b *Bus) Subscribe(sub eventrt.Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Broadcast delivers records to every current subscriber synchronously.
// A subscriber that panics is recovered and logged so the remaining
// subscribers still receive the batch.
func (b *Bus) Broadcast(_ context.Context, records []eventrt.Record) error {
	if len(records) == 0 {
		return nil
	}

	b.mu.RLock()
	subs := make([]eventrt.Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, records)
	}
	return nil
}

func (b *Bus) deliver(sub eventrt.Subscriber, records []eventrt.Record) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("eventrt/bus/local: subscriber panicked: %v", r)
		}
	}()
	sub.Receive(records)
}

var _ eventrt.PubSub = (*Bus)(nil)
