package x86demo

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/expr"
)

// jccConditions is the set of conditional-jump Ops this package lowers.
// The IR doesn't model EFLAGS bit layout (see RegFlags), so every
// entry produces the same "flags nonzero" Cond shape; what matters for the
// Analyzer is that it's an IfElseCond exploring both arms, not the
// predicate's truth value.
var jccConditions = map[x86asm.Op]bool{
	x86asm.JA: true, x86asm.JAE: true, x86asm.JB: true, x86asm.JBE: true,
	x86asm.JE: true, x86asm.JG: true, x86asm.JGE: true, x86asm.JL: true,
	x86asm.JLE: true, x86asm.JNE: true, x86asm.JNO: true, x86asm.JNP: true,
	x86asm.JNS: true, x86asm.JO: true, x86asm.JP: true, x86asm.JS: true,
}

// lower translates a decoded x86asm.Inst into doc.Instruction semantic IR.
// It reports false for anything outside the supported subset.
func lower(inst *x86asm.Inst) (*doc.Instruction, bool) {
	insn := &doc.Instruction{Mnemonic: inst.Op.String(), OpcodeID: uint32(inst.Op)}

	switch {
	case inst.Op == x86asm.MOV:
		dst := mapArg(inst.Args[0], inst.DataSize, false)
		src := mapArg(inst.Args[1], inst.DataSize, false)

		if dst == nil || src == nil {
			return nil, false
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: dst, Src: src}}
		insn.Operands = expr.List{dst, src}

	case inst.Op == x86asm.LEA:
		dst := mapArg(inst.Args[0], inst.DataSize, false)
		src := mapArg(inst.Args[1], inst.DataSize, true) // address itself, never dereferenced

		if dst == nil || src == nil {
			return nil, false
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: dst, Src: src}}
		insn.Operands = expr.List{dst, src}

	case inst.Op == x86asm.ADD || inst.Op == x86asm.SUB:
		dst := mapArg(inst.Args[0], inst.DataSize, false)
		src := mapArg(inst.Args[1], inst.DataSize, false)

		if dst == nil || src == nil {
			return nil, false
		}

		opType := expr.OpAdd
		if inst.Op == x86asm.SUB {
			opType = expr.OpSub
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: dst, Src: &expr.Op{Type: opType, Lhs: dst, Rhs: src}}}
		insn.Operands = expr.List{dst, src}

	case inst.Op == x86asm.CMP:
		lhs := mapArg(inst.Args[0], inst.DataSize, false)
		rhs := mapArg(inst.Args[1], inst.DataSize, false)

		if lhs == nil || rhs == nil {
			return nil, false
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: id(RegFlags), Src: &expr.Op{Type: expr.OpSub, Lhs: lhs, Rhs: rhs}}}
		insn.Operands = expr.List{lhs, rhs}

	case inst.Op == x86asm.JMP:
		target, ok := branchTarget(inst)
		if !ok {
			return nil, false
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: id(uint32(x86asm.EIP)), Src: target}}
		insn.Operands = expr.List{target}

	case jccConditions[inst.Op]:
		target, ok := branchTarget(inst)
		if !ok {
			return nil, false
		}

		insn.TestedFlags = 1
		insn.Semantics = expr.List{&expr.IfElseCond{
			Cond: &expr.Cond{Type: expr.CondNe, Ref: id(RegFlags), Test: expr.NewConst(32, 0, false)},
			Then: &expr.Assign{Dst: id(uint32(x86asm.EIP)), Src: target},
			Else: expr.NewConst(32, 0, false),
		}}
		insn.Operands = expr.List{target}

	case inst.Op == x86asm.CALL:
		target, ok := branchTarget(inst)
		if !ok {
			return nil, false
		}

		push := &expr.Assign{Dst: id(uint32(x86asm.ESP)), Src: &expr.Op{Type: expr.OpSub, Lhs: id(uint32(x86asm.ESP)), Rhs: expr.NewConst(32, 4, false)}}
		jump := &expr.Assign{Dst: id(uint32(x86asm.EIP)), Src: target}
		insn.Semantics = expr.List{push, jump}
		insn.Operands = expr.List{target}

	case inst.Op == x86asm.RET:
		pop := &expr.Assign{Dst: id(uint32(x86asm.ESP)), Src: &expr.Op{Type: expr.OpAdd, Lhs: id(uint32(x86asm.ESP)), Rhs: expr.NewConst(32, 4, false)}}
		ret := &expr.Assign{Dst: id(uint32(x86asm.EIP)), Src: &expr.Sym{Type: expr.SymUnknown, Label: "ret_addr"}}
		insn.Semantics = expr.List{pop, ret}

	default:
		return nil, false
	}

	return insn, true
}

// branchTarget lowers a jmp/jcc/call's sole argument to either a
// PC-relative expression (Rel, the common direct-branch encoding, shaped
// exactly like lc3's pcOffset so internal/analyzer's structural PC-target
// walk resolves it without any architecture-specific code) or the mapped
// register/memory expression for an indirect branch, which analyzer
// deliberately leaves unresolved.
func branchTarget(inst *x86asm.Inst) (expr.Expression, bool) {
	switch v := inst.Args[0].(type) {
	case x86asm.Rel:
		return &expr.Op{Type: expr.OpAdd, Lhs: id(uint32(x86asm.EIP)), Rhs: expr.NewConst(32, uint64(uint32(int32(v))), true)}, true
	default:
		return mapArg(inst.Args[0], inst.DataSize, false), inst.Args[0] != nil
	}
}

// mapArg lowers one x86asm.Arg to an Expression. asAddress suppresses the
// implicit dereference for LEA, whose memory operand denotes a computed
// address rather than a load.
func mapArg(arg x86asm.Arg, dataSize int, asAddress bool) expr.Expression {
	if dataSize == 0 {
		dataSize = 32
	}

	switch v := arg.(type) {
	case x86asm.Reg:
		return id(uint32(v))

	case x86asm.Mem:
		return flatMem(dataSize, memAddress(v), !asAddress)

	case x86asm.Imm:
		return expr.NewConst(dataSize, uint64(uint32(int32(v))), true)

	default:
		return nil
	}
}

// memAddress lowers an x86asm.Mem's base+index*scale+disp addressing mode
// to an Expression computing the effective address.
func memAddress(m x86asm.Mem) expr.Expression {
	var addr expr.Expression = expr.NewConst(32, uint64(uint32(m.Disp)), true)

	if m.Base != 0 {
		addr = &expr.Op{Type: expr.OpAdd, Lhs: id(uint32(m.Base)), Rhs: addr}
	}

	if m.Index != 0 && m.Scale > 0 {
		idxTerm := expr.Expression(id(uint32(m.Index)))
		if m.Scale > 1 {
			idxTerm = &expr.Op{Type: expr.OpMul, Lhs: idxTerm, Rhs: expr.NewConst(32, uint64(m.Scale), false)}
		}

		addr = &expr.Op{Type: expr.OpAdd, Lhs: idxTerm, Rhs: addr}
	}

	return addr
}
