package cart

import "github.com/shopspring/decimal"

// Create requests a new cart with the given ID.
type Create struct {
	ID string
}

// AddItem requests a quantity of SKU be added to the cart at unitPrice.
type AddItem struct {
	SKU       string
	Qty       int
	UnitPrice decimal.Decimal
}

// RemoveItem requests a quantity of SKU be removed from the cart.
type RemoveItem struct {
	SKU string
	Qty int
}
