// cmd/medusa is the command-line interface to Medusa, an interactive
// disassembler and binary-analysis tool.
package main

import (
	"context"
	"os"

	"github.com/medusa-project/medusa/internal/cli"
	"github.com/medusa-project/medusa/internal/cli/cmd"
)

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(
				cmd.AnalyzeCmd(),
				cmd.DBCmd(),
				cmd.NavCmd(),
			).
			Execute(os.Args[1:])

	os.Exit(result)
}
