// Package redis is a PubSub implementation backed by Redis Pub/Sub,
// for deployments where aggregate instances and projections run as
// separate processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	eventrt "github.com/eventrt/eventrt"

	"github.com/redis/go-redis/v9"
)

// wireRecord is the JSON-on-the-wire shape of a Record. The event
// payload is carried as the codec's raw encoding plus its type name so
// the receiving process can decode it with its own registry, which may
// live in a different binary than the one that published it.
type wireRecord struct {
	RefType       string          `json:"ref_type"`
	RefID         string          `json:"ref_id"`
	StreamVersion int64           `json:"stream_version"`
	GlobalVersion int64           `json:"global_version"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      eventrt.Metadata `json:"metadata"`
	At            time.Time       `json:"at"`
}

// Bus is a Redis Pub/Sub-backed PubSub. Broadcast publishes to a single
// Redis channel; every Bus instance subscribed to that channel
// (including across processes) receives each Broadcast published while
// its subscription is connected. Redis Pub/Sub does not replay messages
// to a subscriber that was not connected when they were published.
type Bus struct {
	client   *redis.Client
	channel  string
	registry map[string]eventrt.EventCodec
	logger   *log.Logger

	mu   sync.RWMutex
	subs map[int]eventrt.Subscriber

	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures Bus.
type Option func(*Bus)

// WithLogger overrides the logger used to report decode and delivery
// failures, which Broadcast/receive-loop errors cannot otherwise surface
// to a caller.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates a Redis-backed Bus publishing to and subscribing from
// channel, decoding event payloads with registry. The returned Bus
// immediately starts a background goroutine consuming the channel;
// call Close to stop it.
func New(client *redis.Client, channel string, registry map[string]eventrt.EventCodec, opts ...Option) *Bus {
	b := &Bus{
		client:   client,
		channel:  channel,
		registry: registry,
		logger:   log.Default(),
		subs:     make(map[int]eventrt.Subscriber),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.listen(ctx)

	return b
}

// Subscribe registers sub to receive every future Broadcast, including
// ones published by other processes sharing the same Redis channel.
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

// Broadcast publishes records to the Redis channel as a single JSON
// message. Local subscribers are not delivered directly: they receive
// the message back through the same Redis subscription as every other
// subscriber, so ordering relative to other publishers is consistent.
func (b *Bus) Broadcast(ctx context.Context, records []eventrt.Record) error {
	if len(records) == 0 {
		return nil
	}

	wire := make([]wireRecord, 0, len(records))
	for _, r := range records {
		codec := b.registry[eventrt.EventType(r.Event)]
		if codec == nil {
			return fmt.Errorf("eventrt/bus/redis: no codec registered for event type %q", eventrt.EventType(r.Event))
		}
		payload, err := codec.Encode(r.Event)
		if err != nil {
			return fmt.Errorf("eventrt/bus/redis: could not encode event: %w", err)
		}
		wire = append(wire, wireRecord{
			RefType:       r.Ref.Type,
			RefID:         r.Ref.ID,
			StreamVersion: int64(r.StreamVersion),
			GlobalVersion: int64(r.GlobalVersion),
			EventType:     eventrt.EventType(r.Event),
			Payload:       payload,
			Metadata:      r.Metadata,
			At:            r.At,
		})
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("eventrt/bus/redis: could not encode batch: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Close stops the background subscription loop.
func (b *Bus) Close() error {
	b.cancel()
	<-b.done
	return nil
}

func (b *Bus) listen(ctx context.Context) {
	defer close(b.done)

	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *Bus) handleMessage(payload string) {
	var wire []wireRecord
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		b.logger.Printf("eventrt/bus/redis: could not decode message: %v", err)
		return
	}

	records := make([]eventrt.Record, 0, len(wire))
	for _, w := range wire {
		codec := b.registry[w.EventType]
		if codec == nil {
			b.logger.Printf("eventrt/bus/redis: no codec registered for event type %q", w.EventType)
			continue
		}
		ev, err := codec.Decode(w.Payload)
		if err != nil {
			b.logger.Printf("eventrt/bus/redis: could not decode event: %v", err)
			continue
		}
		records = append(records, eventrt.Record{
			Ref:           eventrt.Ref{Type: w.RefType, ID: w.RefID},
			StreamVersion: eventrt.Version(w.StreamVersion),
			GlobalVersion: eventrt.GlobalVersion(w.GlobalVersion),
			Event:         ev,
			Metadata:      w.Metadata,
			At:            w.At,
		})
	}
	if len(records) == 0 {
		return
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
}

func (b *Bus) deliver(sub eventrt.Subscriber, records []eventrt.Record) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("eventrt/bus/redis: subscriber panicked: %v", r)
		}
	}()
	sub.Receive(records)
}

var _ eventrt.PubSub = (*Bus)(nil)
