package analyzer

import (
	"errors"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/expr"
)

// terminalMnemonics names decoded mnemonics that never fall through,
// architecture-naming aside (RET/JMP transfer control unconditionally on
// every architecture this analyzer has seen). A conditional branch that
// happens to be unconditional in a given encoding (e.g. BR with no tested
// flags) still falls through per this table, which only errs toward
// over-continuation, never toward silently dropping code.
var terminalMnemonics = map[string]bool{
	"RET": true,
	"JMP": true,
}

func (a *Analyzer) disasmBB(w disasmBB, submit func(workItem)) error {
	if a.markVisited(w.Addr, "bb") {
		return nil
	}

	if _, ok := a.Doc.CellAt(w.Addr); ok {
		return nil
	}

	area, ok := a.Doc.MemoryAreaAt(w.Addr)
	if !ok {
		return nil
	}

	buf := make([]byte, a.Arch.MaxInstructionLength())

	n, err := area.ReadAt(w.Addr, buf)
	if err != nil && n == 0 {
		a.logDecodeFailure(w.Addr, err)
		return a.Doc.SetCell(w.Addr, doc.NewUnknownCell(1), false)
	}

	result, ok := a.Arch.Disassemble(buf[:n], 0, w.Mode)
	if !ok {
		a.logDecodeFailure(w.Addr, errs.New("analyzer.disasmBB", errs.Decode, w.Addr))
		return a.Doc.SetCell(w.Addr, doc.NewUnknownCell(1), false)
	}

	cell := doc.NewInstructionCell(result.Length, area.ArchTag, uint8(w.Mode), result.Instruction)

	if err := a.Doc.SetCell(w.Addr, cell, false); err != nil {
		if errors.Is(err, errs.Conflict) {
			return nil
		}

		return err
	}

	fallthroughAddr := w.Addr.MoveBy(int64(result.Length))

	targets, callTargets := a.branchTargets(result.Instruction, w.Addr, fallthroughAddr)

	for _, t := range targets {
		a.Doc.AddCrossRef(t, w.Addr)
		submit(disasmBB{Addr: t, Mode: w.Mode})
	}

	for _, t := range callTargets {
		submit(makeFunc{Addr: t})
	}

	if !terminalMnemonics[result.Instruction.Mnemonic] {
		submit(disasmBB{Addr: fallthroughAddr, Mode: w.Mode})
	}

	return nil
}

func (a *Analyzer) logDecodeFailure(address addr.Address, err error) {
	a.Logger.Warn("decode failed", "subsystem", "analyzer", "addr", address.String(), "err", err)
}

// branchTargets walks insn's semantics for Assigns into the PC register and
// reports the address each one can reach. A conditional branch's Then arm
// is explored unconditionally alongside the already-scheduled fallthrough,
// the same way a recursive-descent disassembler explores both arms of a
// branch it cannot evaluate ahead of time: flag state lives in the target
// binary, not in the scratch CpuContext a static pass has available.
// JSR/JSRR/CALL targets are additionally reported as call targets for
// MakeFunc. Indirect targets (jump through a register or memory cell) are
// symbolic and deliberately left unresolved.
func (a *Analyzer) branchTargets(insn *doc.Instruction, pc, fallthroughAddr addr.Address) (branches, calls []addr.Address) {
	_, offsetID := a.Arch.CpuInformation().ProgramCounter()

	for _, sem := range insn.Semantics {
		for _, src := range pcTargets(sem, offsetID) {
			target, ok := resolveTarget(src, pc, fallthroughAddr, offsetID)
			if !ok {
				continue
			}

			branches = append(branches, target)

			if isCallMnemonic(insn.Mnemonic) {
				calls = append(calls, target)
			}
		}
	}

	return branches, calls
}

func isCallMnemonic(mnemonic string) bool {
	return mnemonic == "JSR" || mnemonic == "JSRR" || mnemonic == "CALL"
}

// pcTargets collects every Src expression assigned into the offsetID
// register anywhere in sem, including both arms of a conditional.
func pcTargets(sem expr.Expression, offsetID uint32) []expr.Expression {
	switch e := sem.(type) {
	case *expr.Assign:
		if id, ok := e.Dst.(*expr.Id); ok && id.RegID == offsetID {
			return []expr.Expression{e.Src}
		}

		return nil

	case *expr.IfElseCond:
		var out []expr.Expression
		out = append(out, pcTargets(e.Then, offsetID)...)
		out = append(out, pcTargets(e.Else, offsetID)...)

		return out

	default:
		return nil
	}
}

// resolveTarget reduces src to a concrete address when it has the shape a
// PC-relative operand always takes (PC plus/minus a constant, or a bare
// constant for absolute targets); anything else is an indirect or
// unconditional no-op target and is left unresolved.
func resolveTarget(src expr.Expression, pc, fallthroughAddr addr.Address, offsetID uint32) (addr.Address, bool) {
	switch e := src.(type) {
	case *expr.Const:
		return addr.Address{Space: pc.Space, Base: fallthroughAddr.Base, Offset: e.Uint64(), OffsetBits: fallthroughAddr.OffsetBits}, true

	case *expr.Op:
		constSide, ok := splitPCConst(e, offsetID)
		if !ok {
			return addr.Address{}, false
		}

		delta := constSide.Int64()
		if e.Type == expr.OpSub {
			delta = -delta
		}

		return fallthroughAddr.MoveBy(delta), true

	default:
		return addr.Address{}, false
	}
}

func splitPCConst(op *expr.Op, offsetID uint32) (constSide *expr.Const, ok bool) {
	if op.Type != expr.OpAdd && op.Type != expr.OpSub {
		return nil, false
	}

	if id, isID := op.Lhs.(*expr.Id); isID && id.RegID == offsetID {
		if c, isConst := op.Rhs.(*expr.Const); isConst {
			return c, true
		}
	}

	if id, isID := op.Rhs.(*expr.Id); isID && id.RegID == offsetID {
		if c, isConst := op.Lhs.(*expr.Const); isConst {
			return c, true
		}
	}

	return nil, false
}
