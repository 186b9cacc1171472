package counter

// Create requests a new counter with the given ID.
type Create struct {
	ID string
}

// Increment requests a counter's value be increased by N.
type Increment struct {
	By int
}
