// simctl runs slotting simulations against a warehouse fixture and manages
// simulator resources from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
