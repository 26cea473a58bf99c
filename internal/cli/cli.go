// Package cli wires Medusa's subcommands into a github.com/spf13/cobra
// command tree (grounded: saferwall-pe's cmd/pedumper.go), replacing the
// teacher's hand-rolled flag.FlagSet dispatch while preserving its
// Commander builder-chain shape as a thin adapter around a root
// cobra.Command.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/medusa-project/medusa/internal/log"
)

// Commander adapts a root cobra.Command to the teacher's
// New(ctx).WithLogger(...).WithCommands(...).Execute(...) call shape.
type Commander struct {
	ctx  context.Context
	log  *log.Logger
	root *cobra.Command
}

// New creates a Commander wrapping a fresh "medusa" root command.
func New(ctx context.Context) *Commander {
	return &Commander{
		ctx: ctx,
		root: &cobra.Command{
			Use:           "medusa",
			Short:         "Medusa interactive disassembler",
			SilenceErrors: true,
		},
	}
}

// WithCommands adds subcommands to the root command.
func (cli *Commander) WithCommands(cmds ...*cobra.Command) *Commander {
	cli.root.AddCommand(cmds...)
	return cli
}

// WithLogger configures the logger subcommands read from their context via
// LoggerFrom, writing to out to leave os.Stdout free for program output.
func (cli *Commander) WithLogger(out *os.File) *Commander {
	logger := log.NewFormattedLogger(out)
	cli.log = logger

	log.SetDefault(logger)
	cli.root.SetContext(context.WithValue(cli.ctx, loggerKey{}, logger))

	return cli
}

// Execute parses args (the program name already stripped, matching the
// teacher's Execute(os.Args[1:]) call convention) and runs the matched
// subcommand, returning a process exit code.
func (cli *Commander) Execute(args []string) int {
	cli.root.SetArgs(args)

	ctx := cli.root.Context()
	if ctx == nil {
		ctx = cli.ctx
	}

	if err := cli.root.ExecuteContext(ctx); err != nil {
		if cli.log != nil {
			cli.log.Error("command failed", "err", err)
		}

		return 1
	}

	return 0
}

type loggerKey struct{}

// LoggerFrom retrieves the logger a command's context carries, falling back
// to the package default if Commander.WithLogger was never called (e.g. in
// a test that runs a cobra.Command directly).
func LoggerFrom(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}

	return log.DefaultLogger()
}
