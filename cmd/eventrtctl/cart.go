package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eventrt/eventrt/example/cart"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Create and modify cart aggregates, and view the CartsState projection",
}

var cartCreateCmd = &cobra.Command{
	Use:   "create ID",
	Short: "Create a new cart",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		if err := sup.Command(context.Background(), cart.TypeName, id, cart.Create{ID: id}, commandTimeout); err != nil {
			exitWithError(err)
		}
		fmt.Printf("cart %s created\n", id)
	},
}

var (
	addSKU   string
	addQty   int
	addPrice string
)

var cartAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Add a quantity of a SKU to a cart",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		price, err := decimal.NewFromString(addPrice)
		if err != nil {
			exitWithError(fmt.Errorf("invalid --price %q: %w", addPrice, err))
		}
		c := cart.AddItem{SKU: addSKU, Qty: addQty, UnitPrice: price}
		if err := sup.Command(context.Background(), cart.TypeName, id, c, commandTimeout); err != nil {
			exitWithError(err)
		}
		fmt.Printf("cart %s: added %d x %s @ %s\n", id, addQty, addSKU, price.StringFixed(2))
	},
}

var (
	removeSKU string
	removeQty int
)

var cartRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a quantity of a SKU from a cart",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		c := cart.RemoveItem{SKU: removeSKU, Qty: removeQty}
		if err := sup.Command(context.Background(), cart.TypeName, id, c, commandTimeout); err != nil {
			exitWithError(err)
		}
		fmt.Printf("cart %s: removed %d x %s\n", id, removeQty, removeSKU)
	},
}

var cartStateCmd = &cobra.Command{
	Use:   "state ID",
	Short: "Print a cart's current state and total",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		state, err := sup.State(context.Background(), cart.TypeName, id, commandTimeout)
		if err != nil {
			exitWithError(err)
		}
		s := state.(cart.State)
		fmt.Printf("%+v\ntotal: %s\n", s, s.Total().StringFixed(2))
	},
}

var cartsProjectionCmd = &cobra.Command{
	Use:   "projection",
	Short: "Print the CartsState projection's current view across every cart",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		state, err := cartProjection.State(ctx)
		if err != nil {
			exitWithError(err)
		}
		for cartID, items := range state.Carts {
			fmt.Printf("%s: %v\n", cartID, items)
		}
	},
}

func init() {
	cartCmd.AddCommand(cartCreateCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartStateCmd)
	cartCmd.AddCommand(cartsProjectionCmd)

	cartAddCmd.Flags().StringVar(&addSKU, "sku", "", "SKU to add")
	cartAddCmd.Flags().IntVar(&addQty, "qty", 1, "quantity to add")
	cartAddCmd.Flags().StringVar(&addPrice, "price", "0", "unit price, e.g. 19.99")

	cartRemoveCmd.Flags().StringVar(&removeSKU, "sku", "", "SKU to remove")
	cartRemoveCmd.Flags().IntVar(&removeQty, "qty", 1, "quantity to remove")
}
