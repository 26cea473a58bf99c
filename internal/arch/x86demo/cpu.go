package x86demo

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/medusa-project/medusa/internal/eval"
)

// Register ids reuse x86asm.Reg's own numbering directly, so no separate
// id<->name table has to be kept in sync with the decoder's register
// space. RegFlags is a synthetic id outside x86asm.Reg's range, standing
// in for EFLAGS the way lc3's RegCC stands in for the PSR: CMP writes it
// and Jcc reads it, but no concrete bit layout is modeled, matching the
// existing lc3 CC simplification (ADD/AND never actually write RegCC
// either).
const RegFlags uint32 = 0x10000

// cpuInfo implements arch.CpuInformation over the 8 general-purpose
// 32-bit registers, EIP, and the synthetic flags register.
type cpuInfo struct{}

func (cpuInfo) RegisterName(id uint32) string {
	if id == RegFlags {
		return "FLAGS"
	}

	return x86asm.Reg(id).String()
}

func (cpuInfo) RegisterWidth(id uint32) int {
	switch {
	case id == RegFlags:
		return 32
	case id >= uint32(x86asm.AL) && id <= uint32(x86asm.DIB):
		return 8
	case id >= uint32(x86asm.AX) && id <= uint32(x86asm.R15W):
		return 16
	case id >= uint32(x86asm.EAX) && id <= uint32(x86asm.R15L):
		return 32
	case id >= uint32(x86asm.RAX) && id <= uint32(x86asm.R15):
		return 64
	case id == uint32(x86asm.EIP):
		return 32
	case id == uint32(x86asm.RIP):
		return 64
	default:
		return 32
	}
}

func (cpuInfo) ProgramCounter() (baseID, offsetID uint32) {
	return uint32(x86asm.EIP), uint32(x86asm.EIP)
}

func (cpuInfo) StackPointer() uint32 { return uint32(x86asm.ESP) }

func (cpuInfo) Registers() []uint32 {
	return []uint32{
		uint32(x86asm.EAX), uint32(x86asm.ECX), uint32(x86asm.EDX), uint32(x86asm.EBX),
		uint32(x86asm.ESP), uint32(x86asm.EBP), uint32(x86asm.ESI), uint32(x86asm.EDI),
		uint32(x86asm.EIP), RegFlags,
	}
}

// CpuInformation returns the x86demo register file description.
func CpuInformation() cpuInfo { return cpuInfo{} }

// MakeCpuContext creates a CpuContext with EIP seeded to 0.
func MakeCpuContext() *eval.CpuContext {
	cpu := eval.NewCpuContext()
	_ = cpu.WriteRegister(uint32(x86asm.EIP), []byte{0, 0, 0, 0}, 4, false)

	return cpu
}

// MakeMemoryContext creates an empty paged memory context.
func MakeMemoryContext() *eval.MemoryContext {
	return eval.NewMemoryContext()
}
