// Command puzzlebox validates, runs and tests puzzle scene scripts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/puzzlebox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
