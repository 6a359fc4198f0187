// Command boulderctl manages a saved boulder collection offline.
package main

import (
	"os"

	"boulder-editor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
