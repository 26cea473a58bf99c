package doc

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/expr"
	"github.com/medusa-project/medusa/internal/mem"
)

// CellType tags the meaning of a byte range within a memory area.
type CellType uint8

const (
	CellUnknown CellType = iota
	CellInstruction
	CellValue
	CellCharacter
	CellString
)

func (t CellType) String() string {
	switch t {
	case CellInstruction:
		return "instruction"
	case CellValue:
		return "value"
	case CellCharacter:
		return "character"
	case CellString:
		return "string"
	default:
		return "unknown"
	}
}

// Cell is a contiguous byte range with exactly one meaning. Every byte of a
// memory area belongs to exactly one Cell or lies in the implicit "unknown"
// sea; cells never straddle area boundaries.
type Cell struct {
	Type        CellType
	Subtype     uint8 // size code or encoding, meaning depends on Type
	LengthBytes int
	FormatStyle uint8
	ArchTag     mem.Tag
	Mode        uint8

	Instruction *Instruction // non-nil iff Type == CellInstruction
}

// Instruction holds the decoded fields of an instruction cell; it is
// attached to a Cell through Cell.Instruction.
type Instruction struct {
	Mnemonic     string
	OpcodeID     uint32
	PrefixFlags  uint32
	TestedFlags  uint32
	UpdatedFlags uint32
	ClearedFlags uint32
	FixedFlags   uint32

	Operands  expr.List // operand_exprs, ordered
	Semantics expr.List // semantic_exprs, ordered
}

// NewUnknownCell builds a length-n Unknown cell, the filler the Analyzer
// drops when decoding fails at an address.
func NewUnknownCell(n int) *Cell {
	return &Cell{Type: CellUnknown, LengthBytes: n}
}

// NewInstructionCell builds an Instruction cell of the given length.
func NewInstructionCell(length int, archTag mem.Tag, mode uint8, insn *Instruction) *Cell {
	return &Cell{
		Type:        CellInstruction,
		LengthBytes: length,
		ArchTag:     archTag,
		Mode:        mode,
		Instruction: insn,
	}
}

// NewCharacterCell builds a one-byte (or encoding-width) Character cell,
// used by MakeString to cover the run preceding a String multi-cell.
func NewCharacterCell(width int, encoding uint8) *Cell {
	return &Cell{Type: CellCharacter, LengthBytes: width, Subtype: encoding}
}

func (c *Cell) String() string {
	if c.Type == CellInstruction && c.Instruction != nil {
		return fmt.Sprintf("%s len=%d mnemonic=%q", c.Type, c.LengthBytes, c.Instruction.Mnemonic)
	}

	return fmt.Sprintf("%s len=%d", c.Type, c.LengthBytes)
}
