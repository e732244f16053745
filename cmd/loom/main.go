// Command loom resolves component definitions and runs component instances.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/loom/cmd/loom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
