// Package cart is a shopping-cart AggregateType with quantity lines and
// decimal-valued pricing, plus a CartsState projection that folds every
// cart's line items into one read model.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	eventrt "github.com/eventrt/eventrt"
)

// Line is one SKU's quantity and the unit price it was last added at.
type Line struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// State is a cart's folded state.
type State struct {
	ID      string
	Created bool
	Lines   map[string]Line
}

// Total returns the sum of Qty * UnitPrice across every line.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total
}

// TypeName is the Ref.Type used for every cart instance.
const TypeName = "Cart"

// Codecs returns the event codecs cart requires, for registration with a
// Store adapter's type registry.
func Codecs() map[string]eventrt.EventCodec {
	return map[string]eventrt.EventCodec{
		"CartCreated":     eventrt.JSONCodec[Created](),
		"CartItemAdded":   eventrt.JSONCodec[ItemAdded](),
		"CartItemRemoved": eventrt.JSONCodec[ItemRemoved](),
	}
}

// Type is the cart AggregateType, ready to register with a Supervisor.
var Type = eventrt.AggregateType[State]{
	Name:    TypeName,
	Initial: func() State { return State{Lines: map[string]Line{}} },

	HandleCommand: func(cmd any, state State) ([]eventrt.Event, error) {
		switch c := cmd.(type) {
		case Create:
			if state.Created {
				return nil, fmt.Errorf("cart %s already created", c.ID)
			}
			return []eventrt.Event{Created{ID: c.ID}}, nil

		case AddItem:
			if !state.Created {
				return nil, fmt.Errorf("cart not created")
			}
			if c.Qty <= 0 {
				return nil, fmt.Errorf("add quantity must be positive, got %d", c.Qty)
			}
			return []eventrt.Event{ItemAdded{SKU: c.SKU, Qty: c.Qty, UnitPrice: c.UnitPrice}}, nil

		case RemoveItem:
			if !state.Created {
				return nil, fmt.Errorf("cart not created")
			}
			if c.Qty <= 0 {
				return nil, fmt.Errorf("remove quantity must be positive, got %d", c.Qty)
			}
			line, ok := state.Lines[c.SKU]
			if !ok || line.Qty < c.Qty {
				return nil, fmt.Errorf("cannot remove %d of %s: only %d present", c.Qty, c.SKU, line.Qty)
			}
			return []eventrt.Event{ItemRemoved{SKU: c.SKU, Qty: c.Qty}}, nil

		default:
			return nil, fmt.Errorf("cart: unknown command type %T", cmd)
		}
	},

	HandleEvent: func(state State, event eventrt.Event) State {
		lines := make(map[string]Line, len(state.Lines))
		for sku, l := range state.Lines {
			lines[sku] = l
		}
		state.Lines = lines
		switch e := event.(type) {
		case Created:
			state.ID = e.ID
			state.Created = true

		case ItemAdded:
			line := state.Lines[e.SKU]
			line.Qty += e.Qty
			line.UnitPrice = e.UnitPrice
			state.Lines[e.SKU] = line

		case ItemRemoved:
			line := state.Lines[e.SKU]
			line.Qty -= e.Qty
			if line.Qty <= 0 {
				delete(state.Lines, e.SKU)
			} else {
				state.Lines[e.SKU] = line
			}
		}
		return state
	},
}
