package lc3

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/eval"
)

var registerNames = map[uint32]string{
	R0: "R0", R1: "R1", R2: "R2", R3: "R3",
	R4: "R4", R5: "R5", R6: "R6", R7: "R7",
	RegPC: "PC", RegCC: "CC",
}

// cpuInfo implements arch.CpuInformation for the LC-3 register file: eight
// 16-bit general-purpose registers, a 16-bit program counter, and a
// 3-bit condition-code register modeled as its own id for IR purposes.
type cpuInfo struct{}

func (cpuInfo) RegisterName(id uint32) string {
	if n, ok := registerNames[id]; ok {
		return n
	}

	return fmt.Sprintf("r%d", id)
}

func (cpuInfo) RegisterWidth(id uint32) int {
	if id == RegCC {
		return 3
	}

	return 16
}

func (cpuInfo) ProgramCounter() (baseID, offsetID uint32) { return RegPC, RegPC }

func (cpuInfo) StackPointer() uint32 { return R6 }

func (cpuInfo) Registers() []uint32 {
	return []uint32{R0, R1, R2, R3, R4, R5, R6, R7, RegPC, RegCC}
}

// CpuInformation returns the LC-3 register file description.
func CpuInformation() cpuInfo { return cpuInfo{} }

// MakeCpuContext creates a CpuContext with PC seeded to 0, matching the
// machine's reset vector in the freestanding case.
func MakeCpuContext() *eval.CpuContext {
	cpu := eval.NewCpuContext()
	_ = cpu.WriteRegister(RegPC, []byte{0, 0}, 2, false)

	return cpu
}

// MakeMemoryContext creates an empty paged memory context; it has no fixed
// size, and pages are created on demand.
func MakeMemoryContext() *eval.MemoryContext {
	return eval.NewMemoryContext()
}
