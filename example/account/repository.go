package main

import (
	"context"

	eventrt "github.com/eventrt/eventrt"
)

// AccountRepository loads and saves Account aggregates using a Store.
type AccountRepository struct {
	store eventrt.Store
}

// NewAccountRepository creates a repository backed by the given store.
func NewAccountRepository(store eventrt.Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Load fetches and rehydrates an Account by its ID.
// It tries a snapshot first, then loads the delta events.
func (r *AccountRepository) Load(ctx context.Context, id string) (*Account, error) {
	a := Account{id: id}

	// 1) Try snapshot
	snap, err := r.store.LoadSnapshot(ctx, a.Ref())
	if err != nil {
		return nil, err
	}
	if s, ok, err := decodeSnapshot(snap); err != nil {
		return nil, err
	} else if ok {
		a.id = s.ID
		a.owner = s.Owner
		a.balance = s.Balance
		a.version = eventrt.Version(s.Version)
		a.opened = s.ID != ""
	}

	// 2) Apply delta events
	records, err := r.store.FetchByAggregate(ctx, a.Ref(), a.Version())
	if err != nil {
		return nil, err
	}
	evs := make([]eventrt.Event, len(records))
	for i, rec := range records {
		evs[i] = rec.Event
	}
	a.restore(evs)

	return &a, nil
}

// Save persists the aggregate's pending events with optimistic locking.
// On success, it clears pending events.
func (r *AccountRepository) Save(ctx context.Context, a *Account, md eventrt.Metadata) error {
	evs, expected := a.flush()
	if len(evs) == 0 {
		return nil
	}
	if expected == eventrt.VersionAll {
		expected = eventrt.ExpectedNoStream
	}
	_, _, err := r.store.Append(ctx, a.Ref(), evs, expected, md)
	return err
}
