// Package arch declares the Architecture plug-in contract: the boundary
// between the disassembly core and a concrete instruction-set decoder. An
// Architecture is a value handed explicitly to an Analyzer or CLI command,
// never retrieved from a package-level registry — there is no global
// module manager here.
package arch

import (
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/eval"
	"github.com/medusa-project/medusa/internal/expr"
)

// Endianness selects byte order for multi-byte immediates and memory
// operands.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

// Mode is an architecture-specific flag selecting an ISA variant, e.g. ARM
// vs Thumb. Which values are valid is up to each Architecture: Modes lists
// them and DefaultMode picks one for an address.
type Mode uint32

// NamedMode pairs a mode id with its human-readable name, as returned by
// Architecture.Modes.
type NamedMode struct {
	Name string
	Mode Mode
}

// CpuInformation exposes an architecture's register file shape: names,
// widths, and the registers playing the program-counter and stack-pointer
// roles. It also implements expr.CpuInfo so Id/VecId nodes can render
// themselves without internal/expr depending on internal/arch.
type CpuInformation interface {
	expr.CpuInfo

	// ProgramCounter returns the (base, offset) register ids forming the PC.
	ProgramCounter() (baseID, offsetID uint32)
	// StackPointer returns the register id used as the stack pointer.
	StackPointer() uint32
	// Registers enumerates every register id this architecture defines.
	Registers() []uint32
}

// DecodeResult is what an Architecture decoder produces from raw bytes: the
// length consumed, and a doc.Instruction carrying mnemonic/operand/semantic
// IR ready to commit as a doc.Cell.
type DecodeResult struct {
	Length      int
	Instruction *doc.Instruction
}

// PrintData is the formatted textual rendering of one decoded instruction,
// used by the CLI/UI layer instead of building strings ad hoc per caller.
type PrintData struct {
	Mnemonic string
	Operands []string
	Comment  string
}

// Architecture is the contract a concrete decoder (lc3, x86demo, ...)
// implements. It is read-only after construction: Disassemble and
// FormatInstruction never mutate architecture state, matching "read-only
// after registration" from the concurrency model.
type Architecture interface {
	Name() string
	Endianness() Endianness
	Modes() []NamedMode
	DefaultMode(address uint64) Mode

	// MaxInstructionLength bounds how many bytes the Analyzer must make
	// available before calling Disassemble.
	MaxInstructionLength() int

	// Disassemble decodes one instruction from stream[offset:], returning
	// false if the bytes don't decode under mode.
	Disassemble(stream []byte, offset int, mode Mode) (DecodeResult, bool)

	CpuInformation() CpuInformation
	MakeCpuContext() *eval.CpuContext
	MakeMemoryContext() *eval.MemoryContext

	FormatInstruction(d *doc.Document, insn *doc.Instruction) (PrintData, bool)
}

// Registry maps architecture tags to the Architecture implementing them. It
// is an explicit value constructed by the caller (CLI main, or a test) and
// passed into the Analyzer — never a package-level singleton.
type Registry struct {
	byTag map[uint32]Architecture
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[uint32]Architecture)}
}

// Register associates tag with an Architecture implementation.
func (r *Registry) Register(tag uint32, a Architecture) {
	r.byTag[tag] = a
}

// Lookup returns the Architecture registered for tag, if any.
func (r *Registry) Lookup(tag uint32) (Architecture, bool) {
	a, ok := r.byTag[tag]
	return a, ok
}
