package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/analyzer"
	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/cli"
	"github.com/medusa-project/medusa/internal/db/text"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/tty"
)

// NavCmd opens a document, either by analyzing a binary fresh or loading a
// previously exported text database, and drops into an interactive REPL
// navigating it with prev/next/goto, wired to doc.History and backed by
// internal/tty's raw-terminal Console.
func NavCmd() *cobra.Command {
	var (
		archName string
		format   string
		base     uint64
		fromDB   bool
	)

	c := &cobra.Command{
		Use:   "nav FILE",
		Short: "interactively navigate a disassembled document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.LoggerFrom(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("nav: %w", err)
			}

			reg := NewRegistry()
			d := doc.New()

			var entryAddr addr.Address

			if fromDB {
				db := text.New()
				if err := db.Load(d, data); err != nil {
					return fmt.Errorf("nav: %w", err)
				}

				entryAddr, _ = d.FirstAddress()
			} else {
				tag, ok := archTag(archName)
				if !ok {
					return fmt.Errorf("nav: unknown arch %q", archName)
				}

				a, ok := reg.Lookup(uint32(tag))
				if !ok {
					return fmt.Errorf("nav: arch %q not registered", archName)
				}

				entryAddr, err = loadDocument(d, data, a, tag, format, base)
				if err != nil {
					return fmt.Errorf("nav: %w", err)
				}

				an := analyzer.New(d, a, 0)
				mode := a.DefaultMode(entryAddr.Linear())

				if err := an.Run(cmd.Context(), entryAddr, mode); err != nil {
					logger.Error("nav: disassembly incomplete", "err", err)
				}
			}

			console, err := tty.NewConsole(os.Stdin, os.Stdout, "(nav) ")
			if err != nil {
				return fmt.Errorf("nav: %w", err)
			}
			defer func() { _ = console.Restore() }()

			return runNavREPL(console, reg, d, entryAddr)
		},
	}

	c.Flags().StringVar(&archName, "arch", "lc3", "architecture plug-in (lc3, x86demo)")
	c.Flags().StringVar(&format, "format", "raw", "input format (raw, lc3obj)")
	c.Flags().Uint64Var(&base, "base", 0, "base address for the raw loader")
	c.Flags().BoolVar(&fromDB, "db", false, "FILE is a text database, not a raw binary")

	return c
}

// runNavREPL drives the prev/next/goto/quit loop over console until the
// user quits or input ends.
func runNavREPL(console *tty.Console, reg *arch.Registry, d *doc.Document, entry addr.Address) error {
	hist := d.History()
	hist.Visit(entry)
	showAddress(console.Writer(), reg, d, entry)

	for {
		line, err := console.ReadLine()
		if err != nil {
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "q":
			return nil

		case "prev":
			if a, ok := hist.Previous(); ok {
				showAddress(console.Writer(), reg, d, a)
			} else {
				fmt.Fprintln(console.Writer(), "no previous address")
			}

		case "next":
			if a, ok := hist.Next(); ok {
				showAddress(console.Writer(), reg, d, a)
			} else {
				fmt.Fprintln(console.Writer(), "no next address")
			}

		case "goto":
			if len(fields) != 2 {
				fmt.Fprintln(console.Writer(), "usage: goto <addr>")
				continue
			}

			v, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 64)
			if err != nil {
				fmt.Fprintln(console.Writer(), "bad address:", err)
				continue
			}

			target := addr.New(v)
			hist.Visit(target)
			showAddress(console.Writer(), reg, d, target)

		default:
			fmt.Fprintln(console.Writer(), "commands: prev, next, goto <addr>, quit")
		}
	}
}

// showAddress renders one address's label, comment, cell, and incoming
// cross-references as a go-pretty table.
func showAddress(w io.Writer, reg *arch.Registry, d *doc.Document, a addr.Address) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"Field", "Value"})
	tbl.AppendRow(table.Row{"Address", a.String()})

	if l, ok := d.LabelAt(a); ok {
		tbl.AppendRow(table.Row{"Label", l.Name})
	}

	if comment, ok := d.GetComment(a); ok {
		tbl.AppendRow(table.Row{"Comment", comment})
	}

	if cell, ok := d.CellAt(a); ok {
		tbl.AppendRow(table.Row{"Cell", cell.Type.String()})

		if cell.Type == doc.CellInstruction && cell.Instruction != nil {
			if area, ok := d.MemoryAreaAt(a); ok {
				if ar, ok := reg.Lookup(uint32(area.ArchTag)); ok {
					if pd, ok := ar.FormatInstruction(d, cell.Instruction); ok {
						tbl.AppendRow(table.Row{"Mnemonic", pd.Mnemonic})
						tbl.AppendRow(table.Row{"Operands", strings.Join(pd.Operands, ", ")})
					}
				}
			}
		}
	}

	for _, from := range d.XrefsFrom(a) {
		tbl.AppendRow(table.Row{"Xref from", from.String()})
	}

	tbl.Render()
}
