package analyzer

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
)

// returnMnemonics names mnemonics that end a basic block without a
// recorded successor edge: the block simply leaves the function.
var returnMnemonics = map[string]bool{
	"RET": true,
	"RTI": true,
}

// makeFunc builds a CFG rooted at w.Addr by walking already-disassembled
// cells and the cross-references disasmBB recorded for each branch, then
// registers a FunctionDetail and a Function multi-cell covering the entry
// block.
func (a *Analyzer) makeFunc(w makeFunc) error {
	if a.markVisited(w.Addr, "func") {
		return nil
	}

	if _, ok := a.Doc.CellAt(w.Addr); !ok {
		return nil // nothing decoded here yet; disasmBB will eventually submit us again indirectly
	}

	cfg := doc.NewCFG()

	pending := []addr.Address{w.Addr}
	seen := map[addr.Address]bool{}

	var entrySize int

	for len(pending) > 0 {
		bs := pending[0]
		pending = pending[1:]

		if seen[bs] {
			continue
		}

		seen[bs] = true
		cfg.AddBlock(bs.Offset)

		cur := bs

		for {
			cell, ok := a.Doc.CellAt(cur)
			if !ok || cell.Type != doc.CellInstruction {
				break
			}

			if bs == w.Addr {
				entrySize += cell.LengthBytes
			}

			next := cur.MoveBy(int64(cell.LengthBytes))

			if target, ok := a.Doc.XrefTo(cur); ok {
				cfg.AddEdge(bs.Offset, target.Offset)

				if !seen[target] {
					pending = append(pending, target)
				}

				if returnMnemonics[cell.Instruction.Mnemonic] || cell.Instruction.Mnemonic == "JMP" {
					break
				}
			}

			if returnMnemonics[cell.Instruction.Mnemonic] {
				break
			}

			cur = next
		}
	}

	fd := &doc.FunctionDetail{
		Name:             "",
		ControlFlowGraph: cfg,
	}

	a.Doc.Details().PutFunction(w.Addr.Offset, fd)

	size := uint64(entrySize)
	if size == 0 {
		size = 1
	}

	if err := a.Doc.AddMultiCell(w.Addr, &doc.MultiCell{Type: doc.MultiCellFunction, SizeByte: size}); err != nil {
		return nil // another worker already materialized this function
	}

	return a.Doc.AddLabel(w.Addr, autoFuncName(w.Addr), doc.LabelFunction, false)
}

func autoFuncName(a addr.Address) string {
	return fmt.Sprintf("fn_%x", a.Offset)
}
