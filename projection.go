package eventrt

import (
	"context"
	"log"
)

// Options carries projection-specific startup arguments to
// ProjectionType.Init, analogous to Metadata for events.
type Options map[string]any

// ProjectionType registers one read model: Init builds its starting state
// and the global version to resume from, and HandleEvent folds one
// Record into state. Unlike aggregates, projections see Records (not raw
// Events) because they need both versions to run the gap detector.
//
// The runtime does not persist a projection's last applied
// GlobalVersion: every start resumes from the version Init returns, so a
// projection whose Init returns GlobalAll replays the whole store.
type ProjectionType[S any] struct {
	Name        string
	Init        func(opts Options) (S, GlobalVersion)
	HandleEvent func(state S, record Record) S
}

type projectionStateReq struct {
	reply chan any
}

// Projection is a running instance of a ProjectionType: spec §4.6's
// always-live actor, subscribed to the bus and self-healing via the
// store whenever it detects a gap.
type Projection[S any] struct {
	pt    ProjectionType[S]
	store Store
	bus   PubSub

	inbox       chan []Record
	stateReqs   chan projectionStateReq
	stop        chan struct{}
	unsubscribe func()
	logger      *log.Logger
}

// StartProjection builds, subscribes, and launches a Projection. The
// returned value is live immediately; catch-up and steady-state both run
// on its background goroutine.
func StartProjection[S any](store Store, bus PubSub, pt ProjectionType[S], opts Options) *Projection[S] {
	p := &Projection[S]{
		pt:        pt,
		store:     store,
		bus:       bus,
		inbox:     make(chan []Record, 256),
		stateReqs: make(chan projectionStateReq),
		stop:      make(chan struct{}),
		logger:    log.New(log.Writer(), "eventrt[projection:"+pt.Name+"]: ", log.LstdFlags),
	}

	// Subscribe before the initial catch-up fetch so no record produced
	// between the two can be missed — any overlap is deduplicated by the
	// comparator exactly like any other at-least-once redelivery.
	p.unsubscribe = bus.Subscribe(SubscriberFunc(func(records []Record) {
		select {
		case p.inbox <- records:
		case <-p.stop:
		}
	}))

	state, lastVersion := pt.Init(opts)
	go p.run(state, lastVersion)
	return p
}

// Stop unsubscribes from the bus and terminates the projection's
// goroutine. Its accumulated state is discarded.
func (p *Projection[S]) Stop() {
	close(p.stop)
	p.unsubscribe()
}

// State returns the projection's current folded state (debug/read
// access; safe to call concurrently with live updates).
func (p *Projection[S]) State(ctx context.Context) (S, error) {
	req := projectionStateReq{reply: make(chan any, 1)}
	select {
	case p.stateReqs <- req:
	case <-ctx.Done():
		var zero S
		return zero, ErrTimeout
	case <-p.stop:
		var zero S
		return zero, ErrShuttingDown
	}
	select {
	case v := <-req.reply:
		return v.(S), nil
	case <-ctx.Done():
		var zero S
		return zero, ErrTimeout
	}
}

func (p *Projection[S]) run(state S, lastVersion GlobalVersion) {
	ctx := context.Background()
	pending := make([]Record, 0, 16)

	state, lastVersion = p.catchUp(ctx, state, lastVersion)

	for {
		select {
		case records, ok := <-p.inbox:
			if !ok {
				return
			}
			pending = append(pending, records...)
			state, lastVersion, pending = p.drain(ctx, state, lastVersion, pending)

		case req := <-p.stateReqs:
			req.reply <- state

		case <-p.stop:
			return
		}
	}
}

// catchUp performs the startup fetch: every record the store has beyond
// lastVersion, folded in order.
func (p *Projection[S]) catchUp(ctx context.Context, state S, lastVersion GlobalVersion) (S, GlobalVersion) {
	records, head, err := p.store.Fetch(ctx, lastVersion)
	if err != nil {
		p.logger.Printf("catch-up fetch failed: %v", err)
		return state, lastVersion
	}
	for _, r := range records {
		state = p.pt.HandleEvent(state, r)
	}
	if len(records) > 0 {
		lastVersion = records[len(records)-1].GlobalVersion
	} else if head > lastVersion {
		lastVersion = head
	}
	return state, lastVersion
}

// drain applies every record in pending that the comparator says is safe
// to apply now, repairing gaps from the store as needed, and returns the
// remaining (still-future) pending records.
func (p *Projection[S]) drain(ctx context.Context, state S, lastVersion GlobalVersion, pending []Record) (S, GlobalVersion, []Record) {
	for len(pending) > 0 {
		r := pending[0]
		switch p.store.CompareVersion(lastVersion, r.GlobalVersion) {
		case Past, Equal:
			pending = pending[1:]

		case NextOne:
			state = p.pt.HandleEvent(state, r)
			lastVersion = r.GlobalVersion
			pending = pending[1:]

		case Future:
			before := lastVersion
			records, _, err := p.store.Fetch(ctx, lastVersion)
			if err != nil {
				p.logger.Printf("gap-repair fetch failed: %v", err)
				return state, lastVersion, pending
			}
			for _, fr := range records {
				state = p.pt.HandleEvent(state, fr)
				lastVersion = fr.GlobalVersion
			}
			if lastVersion == before {
				// Store has nothing new yet (the record we're waiting
				// on hasn't become durable-and-visible from this
				// reader's vantage point); stop for now and retry once
				// more bus traffic (or another Fetch) arrives.
				return state, lastVersion, pending
			}
		}
	}
	return state, lastVersion, pending
}
