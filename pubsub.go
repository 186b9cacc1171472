package eventrt

import (
	"context"
)

// PubSub broadcasts newly-appended Records to subscribed projections.
// Delivery to a given subscriber preserves the order of the Broadcast
// call that produced the records, but the bus makes no cross-publisher
// ordering guarantee — projections tolerate reordering across concurrent
// aggregates and rely on Store.CompareVersion to linearize. Delivery is
// at-least-once; duplicates are possible across restarts.
type PubSub interface {
	// Subscribe registers sub to receive every future Broadcast. The
	// returned func removes the subscription; it is safe to call more
	// than once.
	Subscribe(sub Subscriber) (unsubscribe func())

	// Broadcast delivers records to every current subscriber. A
	// subscriber's delivery failure must not prevent delivery to other
	// subscribers; adapters should log and continue.
	Broadcast(ctx context.Context, records []Record) error
}

// Subscriber receives broadcast records. Receive must not block for long:
// slow subscribers back up the publisher's Broadcast call (local adapter)
// or their own delivery channel (networked adapters).
type Subscriber interface {
	Receive(records []Record)
}

// SubscriberFunc adapts a plain function to a Subscriber.
type SubscriberFunc func(records []Record)

func (f SubscriberFunc) Receive(records []Record) { f(records) }
