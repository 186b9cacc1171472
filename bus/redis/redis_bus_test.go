package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	eventrt "github.com/eventrt/eventrt"
	"github.com/eventrt/eventrt/bus/redis"
)

type opened struct{ ID string }

func (opened) EventType() string { return "Opened" }

func registry() map[string]eventrt.EventCodec {
	return map[string]eventrt.EventCodec{"Opened": eventrt.JSONCodec[opened]()}
}

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("no redis reachable at %s: %v", addr, err)
	}
	return client
}

func TestBus_BroadcastIsDeliveredAcrossInstances(t *testing.T) {
	client := newClient(t)
	t.Cleanup(func() { client.Close() })

	channel := "eventrt-test-" + t.Name()
	publisher := redis.New(client, channel, registry())
	t.Cleanup(func() { publisher.Close() })
	subscriber := redis.New(client, channel, registry())
	t.Cleanup(func() { subscriber.Close() })

	got := make(chan eventrt.Record, 1)
	subscriber.Subscribe(eventrt.SubscriberFunc(func(records []eventrt.Record) {
		got <- records[0]
	}))

	// Give the subscription goroutine time to register with Redis before
	// publishing; Redis Pub/Sub does not buffer for late subscribers.
	time.Sleep(100 * time.Millisecond)

	ref := eventrt.Ref{Type: "Stream", ID: "1"}
	rec := eventrt.Record{Ref: ref, StreamVersion: 1, GlobalVersion: 1, Event: opened{ID: "1"}, At: time.Now()}
	if err := publisher.Broadcast(context.Background(), []eventrt.Record{rec}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	select {
	case r := <-got:
		if r.Ref != ref {
			t.Fatalf("expected ref %+v, got %+v", ref, r.Ref)
		}
		if _, ok := r.Event.(opened); !ok {
			t.Fatalf("expected decoded event of type opened, got %T", r.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cross-instance delivery")
	}
}
