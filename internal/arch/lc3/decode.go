package lc3

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/eval"
	"github.com/medusa-project/medusa/internal/expr"
)

// Tag is the architecture tag this package registers itself under.
const Tag = 1

// Architecture implements arch.Architecture for the teaching ISA. It holds
// no mutable state; every method is safe to call concurrently, matching the
// "read-only after registration" requirement.
type Architecture struct{}

func New() Architecture { return Architecture{} }

func (Architecture) Name() string { return "lc3" }

func (Architecture) Endianness() arch.Endianness { return arch.BigEndian }

func (Architecture) Modes() []arch.NamedMode {
	return []arch.NamedMode{{Name: "default", Mode: 0}}
}

func (Architecture) DefaultMode(uint64) arch.Mode { return 0 }

func (Architecture) MaxInstructionLength() int { return 2 }

func (Architecture) CpuInformation() arch.CpuInformation { return cpuInfo{} }

func (Architecture) MakeCpuContext() *eval.CpuContext { return MakeCpuContext() }

func (Architecture) MakeMemoryContext() *eval.MemoryContext { return MakeMemoryContext() }

func id(reg uint32) *expr.Id { return &expr.Id{RegID: reg, Info: cpuInfo{}} }

func pcOffset(offset int16) expr.Expression {
	return &expr.Op{Type: expr.OpAdd, Lhs: id(RegPC), Rhs: expr.NewConst(16, uint64(uint16(offset)), true)}
}

func flatMem(access int, offset expr.Expression, deref bool) *expr.Mem {
	return &expr.Mem{AccessBits: access, Base: expr.NewConst(16, 0, false), Offset: offset, Dereference: deref}
}

func sext(value uint16, bits uint8) int16 {
	return int16(Word(value).Sext(bits))
}

// Disassemble decodes exactly one 16-bit instruction from stream[offset:].
func (a Architecture) Disassemble(stream []byte, offset int, mode arch.Mode) (arch.DecodeResult, bool) {
	if offset+2 > len(stream) {
		return arch.DecodeResult{}, false
	}

	w := Word(stream[offset])<<8 | Word(stream[offset+1])
	op := DecodeOpcode(w)

	insn := &doc.Instruction{OpcodeID: uint32(op)}

	switch op {
	case BR:
		nzp := uint8((w >> 9) & 0x7)
		off := sext(uint16(w)&0x1ff, 9)
		insn.Mnemonic = "BR" + Condition(nzp).brSuffix()
		insn.TestedFlags = uint32(nzp)

		target := pcOffset(off)
		cond := &expr.Cond{
			Type: expr.CondNe,
			Ref:  &expr.Op{Type: expr.OpAnd, Lhs: id(RegCC), Rhs: expr.NewConst(16, uint64(nzp), false)},
			Test: expr.NewConst(16, 0, false),
		}
		insn.Semantics = expr.List{&expr.IfElseCond{
			Cond: cond,
			Then: &expr.Assign{Dst: id(RegPC), Src: target},
			Else: expr.NewConst(16, 0, false),
		}}
		insn.Operands = expr.List{target}

	case ADD, AND:
		dr := uint32((w >> 9) & 0x7)
		sr1 := uint32((w >> 6) & 0x7)

		var rhs expr.Expression
		if w&0x20 != 0 {
			rhs = expr.NewConst(16, uint64(uint16(sext(uint16(w)&0x1f, 5))), true)
		} else {
			rhs = id(uint32(w & 0x7))
		}

		opType := expr.OpAdd
		name := "ADD"

		if op == AND {
			opType = expr.OpAnd
			name = "AND"
		}

		insn.Mnemonic = name
		insn.Semantics = expr.List{&expr.Assign{Dst: id(dr), Src: &expr.Op{Type: opType, Lhs: id(sr1), Rhs: rhs}}}
		insn.Operands = expr.List{id(dr), id(sr1), rhs}

	case NOT:
		dr := uint32((w >> 9) & 0x7)
		sr := uint32((w >> 6) & 0x7)
		insn.Mnemonic = "NOT"
		insn.Semantics = expr.List{&expr.Assign{Dst: id(dr), Src: &expr.Op{Type: expr.OpXor, Lhs: id(sr), Rhs: expr.NewConst(16, 0xffff, false)}}}
		insn.Operands = expr.List{id(dr), id(sr)}

	case LD, LDI:
		dr := uint32((w >> 9) & 0x7)
		off := sext(uint16(w)&0x1ff, 9)
		addr := pcOffset(off)
		m := flatMem(16, addr, true)

		if op == LDI {
			insn.Mnemonic = "LDI"
			m = flatMem(16, flatMem(16, addr, true), true)
		} else {
			insn.Mnemonic = "LD"
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: id(dr), Src: m}}
		insn.Operands = expr.List{id(dr), addr}

	case LDR:
		dr := uint32((w >> 9) & 0x7)
		base := uint32((w >> 6) & 0x7)
		off := sext(uint16(w)&0x3f, 6)
		addr := &expr.Op{Type: expr.OpAdd, Lhs: id(base), Rhs: expr.NewConst(16, uint64(uint16(off)), true)}
		insn.Mnemonic = "LDR"
		insn.Semantics = expr.List{&expr.Assign{Dst: id(dr), Src: flatMem(16, addr, true)}}
		insn.Operands = expr.List{id(dr), id(base), addr}

	case LEA:
		dr := uint32((w >> 9) & 0x7)
		off := sext(uint16(w)&0x1ff, 9)
		addr := pcOffset(off)
		insn.Mnemonic = "LEA"
		insn.Semantics = expr.List{&expr.Assign{Dst: id(dr), Src: addr}}
		insn.Operands = expr.List{id(dr), addr}

	case ST, STI:
		sr := uint32((w >> 9) & 0x7)
		off := sext(uint16(w)&0x1ff, 9)
		addr := pcOffset(off)
		m := flatMem(16, addr, true)

		if op == STI {
			insn.Mnemonic = "STI"
			m = flatMem(16, flatMem(16, addr, true), true)
		} else {
			insn.Mnemonic = "ST"
		}

		insn.Semantics = expr.List{&expr.Assign{Dst: m, Src: id(sr)}}
		insn.Operands = expr.List{id(sr), addr}

	case STR:
		sr := uint32((w >> 9) & 0x7)
		base := uint32((w >> 6) & 0x7)
		off := sext(uint16(w)&0x3f, 6)
		addr := &expr.Op{Type: expr.OpAdd, Lhs: id(base), Rhs: expr.NewConst(16, uint64(uint16(off)), true)}
		insn.Mnemonic = "STR"
		insn.Semantics = expr.List{&expr.Assign{Dst: flatMem(16, addr, true), Src: id(sr)}}
		insn.Operands = expr.List{id(sr), id(base), addr}

	case JMP:
		base := uint32((w >> 6) & 0x7)
		insn.Mnemonic = "JMP"
		if base == R7 {
			insn.Mnemonic = "RET"
		}
		insn.Semantics = expr.List{&expr.Assign{Dst: id(RegPC), Src: id(base)}}
		insn.Operands = expr.List{id(base)}

	case JSR:
		link := &expr.Assign{Dst: id(R7), Src: id(RegPC)}

		var jump *expr.Assign

		if w&0x800 != 0 {
			off := sext(uint16(w)&0x7ff, 11)
			insn.Mnemonic = "JSR"
			target := pcOffset(off)
			jump = &expr.Assign{Dst: id(RegPC), Src: target}
			insn.Operands = expr.List{target}
		} else {
			base := uint32((w >> 6) & 0x7)
			insn.Mnemonic = "JSRR"
			jump = &expr.Assign{Dst: id(RegPC), Src: id(base)}
			insn.Operands = expr.List{id(base)}
		}

		insn.Semantics = expr.List{link, jump}

	case TRAP:
		vector := uint8(w & 0xff)
		insn.Mnemonic = "TRAP"
		insn.Semantics = expr.List{
			&expr.Assign{Dst: id(R7), Src: id(RegPC)},
			&expr.System{Name: fmt.Sprintf("trap#%#02x", vector)},
		}
		insn.Operands = expr.List{expr.NewConst(8, uint64(vector), false)}

	case RTI, RES:
		insn.Mnemonic = op.String()
		insn.Semantics = expr.List{&expr.System{Name: op.String()}}

	default:
		return arch.DecodeResult{}, false
	}

	return arch.DecodeResult{Length: 2, Instruction: insn}, true
}

func (c Condition) brSuffix() string {
	s := ""
	if c&ConditionNegative != 0 {
		s += "n"
	}

	if c&ConditionZero != 0 {
		s += "z"
	}

	if c&ConditionPositive != 0 {
		s += "p"
	}

	return s
}

// FormatInstruction renders a decoded LC-3 instruction as mnemonic plus
// operands, resolving any address operand against the Document's labels
// when one exists there.
func (Architecture) FormatInstruction(d *doc.Document, insn *doc.Instruction) (arch.PrintData, bool) {
	if insn == nil {
		return arch.PrintData{}, false
	}

	operands := make([]string, 0, len(insn.Operands))
	for _, o := range insn.Operands {
		operands = append(operands, o.String())
	}

	return arch.PrintData{Mnemonic: insn.Mnemonic, Operands: operands}, true
}
