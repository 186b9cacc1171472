package cart

import "github.com/shopspring/decimal"

// Created is emitted when a new cart is opened.
type Created struct {
	ID string
}

func (Created) EventType() string { return "CartCreated" }

// ItemAdded is emitted when a quantity of SKU is added to the cart, at the
// unit price in effect at the time of the command.
type ItemAdded struct {
	SKU       string
	Qty       int
	UnitPrice decimal.Decimal
}

func (ItemAdded) EventType() string { return "CartItemAdded" }

// ItemRemoved is emitted when a quantity of SKU is removed from the cart.
type ItemRemoved struct {
	SKU string
	Qty int
}

func (ItemRemoved) EventType() string { return "CartItemRemoved" }
