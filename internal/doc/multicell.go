package doc

import "fmt"

// MultiCellType tags the kind of higher-order grouping a MultiCell forms.
type MultiCellType uint8

const (
	MultiCellFunction MultiCellType = iota
	MultiCellString
	MultiCellStructure
	MultiCellArray
)

func (t MultiCellType) String() string {
	switch t {
	case MultiCellFunction:
		return "function"
	case MultiCellString:
		return "string"
	case MultiCellStructure:
		return "structure"
	case MultiCellArray:
		return "array"
	default:
		return "unknown"
	}
}

// MultiCell occupies the inclusive range [Start, Start+Size) over cells
// that must already exist and be of a type compatible with it (e.g. a
// Function contains only Instructions).
type MultiCell struct {
	Type     MultiCellType
	SizeByte uint64
	DetailID DetailID // zero value means "no detail record"
}

func (m *MultiCell) String() string {
	return fmt.Sprintf("%s size=%d detail=%s", m.Type, m.SizeByte, m.DetailID)
}

// compatible reports whether a cell of the given CellType may be part of a
// multi-cell of type t, enforcing the data model's "compatible type"
// invariant for MultiCell membership.
func compatible(t MultiCellType, c CellType) bool {
	switch t {
	case MultiCellFunction:
		return c == CellInstruction
	case MultiCellString:
		return c == CellCharacter
	case MultiCellStructure, MultiCellArray:
		return c == CellValue || c == CellCharacter
	default:
		return false
	}
}
