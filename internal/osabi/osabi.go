// Package osabi declares the OS personality contract: how a freshly loaded
// Document's CpuContext is initialized, and what effects a call into the
// environment (trap, syscall, import) has on registers the Evaluator can't
// otherwise resolve.
package osabi

import (
	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/eval"
	"github.com/medusa-project/medusa/internal/expr"
)

// Personality models one OS/ABI's calling convention and environment entry
// points.
type Personality interface {
	// InitializeContext seeds cpu with whatever the environment guarantees
	// at entry (stack pointer, PC), given entry's address and cpuInfo's
	// register shape.
	InitializeContext(cpu *eval.CpuContext, cpuInfo arch.CpuInformation, entry uint64)

	// ExecuteSymbol returns the effects of a call into symbol name: an
	// expression list an Analyzer can evaluate in place of actually running
	// the call, poisoning whatever it cannot determine.
	ExecuteSymbol(name string, cpuInfo arch.CpuInformation) expr.List
}

// Freestanding models a binary with no operating system underneath it: no
// syscalls, no loader-provided argv/envp. ExecuteSymbol always poisons.
type Freestanding struct {
	// ReturnRegister is the register id an ABI's call-return effect writes,
	// when ReturnRegister is non-nil.
	ReturnRegister *uint32

	// CallerSaved lists register ids a call is assumed to clobber.
	CallerSaved []uint32
}

// NewFreestanding builds a Freestanding personality for the given ABI
// register roles.
func NewFreestanding(returnReg *uint32, callerSaved []uint32) *Freestanding {
	return &Freestanding{ReturnRegister: returnReg, CallerSaved: callerSaved}
}

func (f *Freestanding) InitializeContext(cpu *eval.CpuContext, cpuInfo arch.CpuInformation, entry uint64) {
	base, offset := cpuInfo.ProgramCounter()
	width := (cpuInfo.RegisterWidth(offset) + 7) / 8

	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = byte(entry >> (8 * i))
	}

	_ = cpu.WriteRegister(offset, buf, width, false)

	if base != offset {
		_ = cpu.WriteRegister(base, make([]byte, width), width, false)
	}

	sp := cpuInfo.StackPointer()
	spWidth := (cpuInfo.RegisterWidth(sp) + 7) / 8
	top := make([]byte, spWidth)

	for i := range top {
		top[i] = 0xff
	}

	_ = cpu.WriteRegister(sp, top, spWidth, false)
}

// ExecuteSymbol returns an Assign of Sym(ReturnedValue) into the ABI return
// register, if one is configured, followed by an Assign of Sym(Undefined)
// into each CallerSaved register; with neither configured it returns no
// effects. Grounded on the trap-emulation shape of the
// original implementation's environment layer, translated to the
// freestanding case where no concrete syscall semantics exist.
func (f *Freestanding) ExecuteSymbol(name string, cpuInfo arch.CpuInformation) expr.List {
	var effects expr.List

	if f.ReturnRegister != nil {
		effects = append(effects, &expr.Assign{
			Dst: &expr.Id{RegID: *f.ReturnRegister, Info: cpuInfo},
			Src: &expr.Sym{Type: expr.SymReturnedValue, Label: name},
		})
	}

	for _, reg := range f.CallerSaved {
		effects = append(effects, &expr.Assign{
			Dst: &expr.Id{RegID: reg, Info: cpuInfo},
			Src: &expr.Sym{Type: expr.SymUndefined, Label: name},
		})
	}

	return effects
}
