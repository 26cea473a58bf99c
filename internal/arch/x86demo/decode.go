// Package x86demo implements a second Architecture plug-in, over
// golang.org/x/arch/x86/x86asm, lowering a practical subset of 32-bit x86
// (mov/lea/add/sub/cmp/jmp/jcc/call/ret) to the same semantic IR internal/
// arch/lc3 targets. Its purpose per SPEC_FULL.md is to exercise the IR and
// Evaluator against a real-world instruction set rather than only the
// teaching ISA, grounded in other_examples' mdheller-exp/cmd/bin2asm usage
// of x86asm.Decode / x86asm.IntelSyntax.
//
// Only 32-bit protected mode is modeled; 16-bit and 64-bit encodings,
// SSE/MMX/x87 instructions, and segment overrides are out of scope for a
// demo architecture and decode as unknown.
package x86demo

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/eval"
	"github.com/medusa-project/medusa/internal/expr"
)

// Tag is the architecture tag this package registers itself under.
const Tag = 2

// Architecture implements arch.Architecture for a 32-bit x86 subset. It
// holds no mutable state, matching the "read-only after registration"
// requirement lc3.Architecture also follows.
type Architecture struct{}

func New() Architecture { return Architecture{} }

func (Architecture) Name() string { return "x86demo" }

func (Architecture) Endianness() arch.Endianness { return arch.LittleEndian }

func (Architecture) Modes() []arch.NamedMode {
	return []arch.NamedMode{{Name: "x86-32", Mode: 32}}
}

func (Architecture) DefaultMode(uint64) arch.Mode { return 32 }

// MaxInstructionLength is the longest encoding x86 permits.
func (Architecture) MaxInstructionLength() int { return 15 }

func (Architecture) CpuInformation() arch.CpuInformation { return cpuInfo{} }

func (Architecture) MakeCpuContext() *eval.CpuContext { return MakeCpuContext() }

func (Architecture) MakeMemoryContext() *eval.MemoryContext { return MakeMemoryContext() }

func id(reg uint32) *expr.Id { return &expr.Id{RegID: reg, Info: cpuInfo{}} }

func flatMem(access int, offset expr.Expression, deref bool) *expr.Mem {
	return &expr.Mem{AccessBits: access, Base: expr.NewConst(32, 0, false), Offset: offset, Dereference: deref}
}

// Disassemble decodes exactly one x86 instruction from stream[offset:]
// under 32-bit mode and lowers the supported subset to semantic IR.
// Instructions outside that subset, or that fail to decode at all, report
// false so the Analyzer falls back to an Unknown cell the same way it does
// for an lc3 decode failure.
func (a Architecture) Disassemble(stream []byte, offset int, mode arch.Mode) (arch.DecodeResult, bool) {
	if offset >= len(stream) {
		return arch.DecodeResult{}, false
	}

	inst, err := x86asm.Decode(stream[offset:], int(mode))
	if err != nil {
		return arch.DecodeResult{}, false
	}

	insn, ok := lower(&inst)
	if !ok {
		return arch.DecodeResult{}, false
	}

	return arch.DecodeResult{Length: inst.Len, Instruction: insn}, true
}

// FormatInstruction renders a decoded instruction as mnemonic plus
// operands, the same IR-driven rendering lc3.Architecture uses: the
// x86asm.Inst itself isn't retained past decode, since every operand
// already carries a self-describing String() through the IR.
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
