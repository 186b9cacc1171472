package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eventrt/eventrt/example/counter"
)

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Create and increment counter aggregates",
}

var counterCreateCmd = &cobra.Command{
	Use:   "create ID",
	Short: "Create a new counter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		err := sup.Command(context.Background(), counter.TypeName, id, counter.Create{ID: id}, commandTimeout)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("counter %s created\n", id)
	},
}

var incrementBy int

var counterIncrementCmd = &cobra.Command{
	Use:   "increment ID",
	Short: "Increment a counter's value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		cmdArg := counter.Increment{By: incrementBy}
		if err := sup.Command(context.Background(), counter.TypeName, id, cmdArg, commandTimeout); err != nil {
			exitWithError(err)
		}
		fmt.Printf("counter %s incremented by %d\n", id, incrementBy)
	},
}

var counterStateCmd = &cobra.Command{
	Use:   "state ID",
	Short: "Print a counter's current state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		state, err := sup.State(context.Background(), counter.TypeName, id, commandTimeout)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("%+v\n", state.(counter.State))
	},
}

func init() {
	counterCmd.AddCommand(counterCreateCmd)
	counterCmd.AddCommand(counterIncrementCmd)
	counterCmd.AddCommand(counterStateCmd)

	counterIncrementCmd.Flags().IntVar(&incrementBy, "by", 1, "amount to increment by")
}
