package cart

import eventrt "github.com/eventrt/eventrt"

// CartsState is the materialized read model across every cart: its ID
// maps to a SKU -> quantity view. It ignores price, which lives only on
// each cart's own aggregate state.
type CartsState struct {
	Carts map[string]map[string]int
}

// ProjectionTypeName is the ProjectionType.Name used to start CartsState.
const ProjectionTypeName = "CartsState"

// ProjectionType folds CartCreated/CartItemAdded/CartItemRemoved records
// from every cart stream into one cross-cart quantity view.
var ProjectionType = eventrt.ProjectionType[CartsState]{
	Name: ProjectionTypeName,

	Init: func(_ eventrt.Options) (CartsState, eventrt.GlobalVersion) {
		return CartsState{Carts: map[string]map[string]int{}}, eventrt.GlobalAll
	},

	HandleEvent: func(state CartsState, record eventrt.Record) CartsState {
		if record.Ref.Type != TypeName {
			return state
		}
		cartID := record.Ref.ID
		items, ok := state.Carts[cartID]
		if !ok {
			items = map[string]int{}
			state.Carts[cartID] = items
		}

		switch e := record.Event.(type) {
		case ItemAdded:
			items[e.SKU] += e.Qty
		case ItemRemoved:
			items[e.SKU] -= e.Qty
			if items[e.SKU] <= 0 {
				delete(items, e.SKU)
			}
		}
		return state
	},
}
