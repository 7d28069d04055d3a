// Command mamdani compiles and evaluates Mamdani fuzzy rule bases.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mamdani/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
