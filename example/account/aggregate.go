package main

import (
	"fmt"

	eventrt "github.com/eventrt/eventrt"
)

// Account is the aggregate root that enforces domain rules and emits events.
//
// This example demonstrates the Store interface used directly, without the
// actor runtime in this module (Runtime/Supervisor) — a simple
// read-modify-write path some callers may still prefer for occasional
// scripted operations. See example/counter and example/cart for the
// actor-based path.
type Account struct {
	id      string
	owner   string
	balance int64
	version eventrt.Version // current version (after applying pending)
	pend    []eventrt.Event // uncommitted domain events
	opened  bool
}

func (a *Account) record(e eventrt.Event) {
	a.apply(e)
	a.pend = append(a.pend, e)
}

func (a *Account) Balance() int64 {
	return a.balance
}

// Handle routes a command to domain logic and records resulting events.
func (a *Account) Handle(cmd any) error {
	switch c := cmd.(type) {
	case OpenAccountCommand:
		if a.opened {
			return fmt.Errorf("account already opened")
		}
		if c.AccountID == "" {
			return fmt.Errorf("empty account id")
		}
		if c.Initial < 0 {
			return fmt.Errorf("initial balance cannot be negative")
		}
		a.record(AccountOpened{AccountID: c.AccountID, Owner: c.Owner, Initial: c.Initial})
		return nil

	case DepositCommand:
		if !a.opened {
			return fmt.Errorf("account not opened")
		}
		if c.Amount <= 0 {
			return fmt.Errorf("invalid deposit amount")
		}
		a.record(MoneyDeposited{Amount: c.Amount})
		return nil
	}

	return fmt.Errorf("unknown command type %T", cmd)
}

// Ref is the aggregate's stream reference.
func (a *Account) Ref() eventrt.Ref { return eventrt.Ref{Type: "Account", ID: a.id} }

func (a *Account) apply(e eventrt.Event) {
	switch ev := e.(type) {
	case AccountOpened:
		a.id = ev.AccountID
		a.owner = ev.Owner
		a.balance = ev.Initial
		a.opened = true
	case MoneyDeposited:
		a.balance += ev.Amount
	}
	a.version++
}

// restore replays previously-persisted events, in order, onto a.
func (a *Account) restore(events []eventrt.Event) {
	for _, e := range events {
		a.apply(e)
	}
}

// flush returns the aggregate's pending events and the expected version
// they must be appended at (the version the stream was at before they
// were recorded).
func (a *Account) flush() ([]eventrt.Event, eventrt.Version) {
	n := eventrt.Version(len(a.pend))
	expected := a.version - n
	evs := make([]eventrt.Event, len(a.pend))
	copy(evs, a.pend)
	a.pend = nil
	return evs, expected
}

func (a *Account) Version() eventrt.Version { return a.version }
