// Command flux runs, records and replays action dispatch scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/flux/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
