// Package main is eventrtctl, a command-line harness for the example
// aggregates and projections in this repository. It wires an in-memory
// Store and a process-local Bus — nothing here persists across
// invocations — so each run starts from an empty event store.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	eventrt "github.com/eventrt/eventrt"
	"github.com/eventrt/eventrt/bus/local"
	"github.com/eventrt/eventrt/example/cart"
	"github.com/eventrt/eventrt/example/counter"
	"github.com/eventrt/eventrt/stores/mem"
)

const commandTimeout = 2 * time.Second

var (
	store = mem.New()
	bus   = local.New()
	sup   = eventrt.NewSupervisor(nil)

	cartProjection *eventrt.Projection[cart.CartsState]
)

// rootCmd is the base command when eventrtctl is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "eventrtctl",
	Short: "Drive the example aggregates and projections from a shell",
	Long: `eventrtctl is a throwaway driver for this module's example
aggregates (counter, cart) and the cart projection. State lives only
for the duration of one process: every invocation starts from an
empty in-memory store.`,
}

// Execute adds every child command to rootCmd and runs it. It is called
// by main.main and should be called exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	eventrt.RegisterAggregate(sup, store, bus, counter.Type)
	eventrt.RegisterAggregate(sup, store, bus, cart.Type)
	cartProjection = eventrt.StartProjection(store, bus, cart.ProjectionType, nil)

	rootCmd.AddCommand(counterCmd)
	rootCmd.AddCommand(cartCmd)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
