// Package counter is a minimal AggregateType demonstrating create +
// increment commands against the runtime in this module.
package counter

import (
	"fmt"

	eventrt "github.com/eventrt/eventrt"
)

// State is a counter's folded state.
type State struct {
	ID      string
	Value   int
	Created bool
}

// TypeName is the Ref.Type used for every counter instance.
const TypeName = "Counter"

// Codecs returns the event codecs counter requires, for registration with
// a Store adapter's type registry.
func Codecs() map[string]eventrt.EventCodec {
	return map[string]eventrt.EventCodec{
		"CounterCreated":     eventrt.JSONCodec[Created](),
		"CounterIncremented": eventrt.JSONCodec[Incremented](),
	}
}

// Type is the counter AggregateType, ready to register with a Supervisor.
var Type = eventrt.AggregateType[State]{
	Name:    TypeName,
	Initial: func() State { return State{} },

	HandleCommand: func(cmd any, state State) ([]eventrt.Event, error) {
		switch c := cmd.(type) {
		case Create:
			if state.Created {
				return nil, fmt.Errorf("counter %s already created", c.ID)
			}
			return []eventrt.Event{Created{ID: c.ID}}, nil

		case Increment:
			if !state.Created {
				return nil, fmt.Errorf("counter not created")
			}
			if c.By <= 0 {
				return nil, fmt.Errorf("increment must be positive, got %d", c.By)
			}
			return []eventrt.Event{Incremented{By: c.By}}, nil

		default:
			return nil, fmt.Errorf("counter: unknown command type %T", cmd)
		}
	},

	HandleEvent: func(state State, event eventrt.Event) State {
		switch e := event.(type) {
		case Created:
			state.ID = e.ID
			state.Created = true
		case Incremented:
			state.Value += e.By
		}
		return state
	},
}
