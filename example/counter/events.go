package counter

// Created is emitted when a counter is first created.
type Created struct {
	ID string
}

func (Created) EventType() string { return "CounterCreated" }

// Incremented is emitted when a counter's value is increased by N.
type Incremented struct {
	By int
}

func (Incremented) EventType() string { return "CounterIncremented" }
