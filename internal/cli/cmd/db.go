package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medusa-project/medusa/internal/analyzer"
	"github.com/medusa-project/medusa/internal/cli"
	"github.com/medusa-project/medusa/internal/db/text"
	"github.com/medusa-project/medusa/internal/doc"
)

// DBCmd groups export/import around the text-format database, giving
// db/text.DB a CLI entry point for the round-trip spec.md §8 requires.
func DBCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "db",
		Short: "export or import a document in the text database format",
	}

	c.AddCommand(dbExportCmd(), dbImportCmd())

	return c
}

// dbExportCmd loads a binary the same way analyze does, runs the Analyzer
// over it, and writes the resulting Document out as a text-format
// database, so the annotations a session produces survive the process.
func dbExportCmd() *cobra.Command {
	var (
		archName string
		format   string
		base     uint64
		out      string
	)

	c := &cobra.Command{
		Use:   "export FILE",
		Short: "analyze a binary and save the document as a text database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.LoggerFrom(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("db export: %w", err)
			}

			tag, ok := archTag(archName)
			if !ok {
				return fmt.Errorf("db export: unknown arch %q", archName)
			}

			reg := NewRegistry()

			a, ok := reg.Lookup(uint32(tag))
			if !ok {
				return fmt.Errorf("db export: arch %q not registered", archName)
			}

			d := doc.New()

			entryAddr, err := loadDocument(d, data, a, tag, format, base)
			if err != nil {
				return fmt.Errorf("db export: %w", err)
			}

			an := analyzer.New(d, a, 0)
			mode := a.DefaultMode(entryAddr.Linear())

			if err := an.Run(cmd.Context(), entryAddr, mode); err != nil {
				logger.Error("db export: disassembly incomplete", "err", err)
			}

			db := text.New()

			encoded, err := db.Save(d)
			if err != nil {
				return fmt.Errorf("db export: %w", err)
			}

			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return fmt.Errorf("db export: %w", err)
			}

			logger.Info("db export: wrote database", "file", out, "bytes", len(encoded))

			return nil
		},
	}

	c.Flags().StringVar(&archName, "arch", "lc3", "architecture plug-in (lc3, x86demo)")
	c.Flags().StringVar(&format, "format", "raw", "input format (raw, lc3obj)")
	c.Flags().Uint64Var(&base, "base", 0, "base address for the raw loader")
	c.Flags().StringVar(&out, "out", "a.medusa", "output database `file`")

	return c
}

// dbImportCmd loads a previously exported text database and prints the
// same summary analyze does, proving the round trip preserved the
// annotations.
func dbImportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "import FILE",
		Short: "load a text database and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("db import: %w", err)
			}

			d := doc.New()
			db := text.New()

			if err := db.Load(d, data); err != nil {
				return fmt.Errorf("db import: %w", err)
			}

			printSummary(cmd.OutOrStdout(), d)

			return nil
		},
	}

	return c
}
