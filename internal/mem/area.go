// Package mem implements MemoryArea, the contiguous mapped region that a
// Document's memory areas are built from.
//
// The byte-backed stream and copy-on-write overlay discipline follow the
// teacher's memory controller (internal/vm/mem.go), generalized from a
// single fixed 64K LC-3 address space to an arbitrary-sized, arbitrary-base
// region tagged with an architecture and permission set.
package mem

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/errs"
)

// Permissions is a bitset of R, W, X access rights for a MemoryArea.
type Permissions uint8

const (
	Read Permissions = 1 << iota
	Write
	Execute
)

func (p Permissions) String() string {
	r, w, x := "-", "-", "-"
	if p&Read != 0 {
		r = "r"
	}

	if p&Write != 0 {
		w = "w"
	}

	if p&Execute != 0 {
		x = "x"
	}

	return r + w + x
}

// Tag identifies the architecture decoder responsible for cells within an
// area, per the glossary's "architecture tag".
type Tag uint32

// Area is a contiguous mapped region of the Document's address space: a
// name, a start address, a size, permissions, the architecture responsible
// for decoding it, a default mode, and a byte-backed stream. Two areas never
// overlap in linear space; they are kept in sorted order by their owning
// Document.
type Area struct {
	Name        string
	Start       addr.Address
	Size        uint64
	Perms       Permissions
	ArchTag     Tag
	DefaultMode uint8
	Virtual     bool // true if not backed by file content (e.g. BSS)

	bytes []byte
}

// New creates a memory area backed by data. If data is shorter than size, it
// is zero-padded; if longer, it is truncated to size.
func New(name string, start addr.Address, size uint64, perms Permissions, archTag Tag, mode uint8, data []byte) *Area {
	backing := make([]byte, size)
	copy(backing, data)

	return &Area{
		Name:        name,
		Start:       start,
		Size:        size,
		Perms:       perms,
		ArchTag:     archTag,
		DefaultMode: mode,
		bytes:       backing,
	}
}

// NewVirtual creates a zero-filled memory area with no backing file content,
// such as a BSS segment.
func NewVirtual(name string, start addr.Address, size uint64, perms Permissions, archTag Tag, mode uint8) *Area {
	a := New(name, start, size, perms, archTag, mode, nil)
	a.Virtual = true

	return a
}

// End returns the address one past the area's last byte.
func (a *Area) End() addr.Address {
	return a.Start.MoveBy(int64(a.Size))
}

// Contains reports whether address lies within [Start, End).
func (a *Area) Contains(address addr.Address) bool {
	lin := address.Linear()

	return lin >= a.Start.Linear() && lin < a.End().Linear()
}

// Overlaps reports whether the two areas share any linear address.
func (a *Area) Overlaps(b *Area) bool {
	return a.Start.Linear() < b.End().Linear() && b.Start.Linear() < a.End().Linear()
}

// Offset returns the offset of address within the area, failing with
// errs.NotFound if address is not contained.
func (a *Area) Offset(address addr.Address) (uint64, error) {
	if !a.Contains(address) {
		return 0, errs.New("mem.Offset", errs.NotFound, address)
	}

	return address.Linear() - a.Start.Linear(), nil
}

// ReadAt copies up to len(buf) bytes starting at address into buf. It
// returns the number of bytes copied and errs.Truncated if fewer bytes were
// available than requested.
func (a *Area) ReadAt(address addr.Address, buf []byte) (int, error) {
	off, err := a.Offset(address)
	if err != nil {
		return 0, err
	}

	n := copy(buf, a.bytes[off:])
	if n < len(buf) {
		return n, errs.New("mem.ReadAt", errs.Truncated, address)
	}

	return n, nil
}

// WriteAt copies data into the area starting at address. It fails with
// errs.Truncated if data would run past the area's end.
func (a *Area) WriteAt(address addr.Address, data []byte) (int, error) {
	off, err := a.Offset(address)
	if err != nil {
		return 0, err
	}

	if off+uint64(len(data)) > a.Size {
		return 0, errs.New("mem.WriteAt", errs.Truncated, address)
	}

	return copy(a.bytes[off:], data), nil
}

// Bytes returns the area's full backing slice. Callers must not retain or
// mutate it beyond the scope of a single Document mutation.
func (a *Area) Bytes() []byte { return a.bytes }

func (a *Area) String() string {
	return fmt.Sprintf("%s [%s, %s) %s arch=%d mode=%d", a.Name, a.Start, a.End(), a.Perms, a.ArchTag, a.DefaultMode)
}

// Compare orders areas by start address, used to keep a Document's area set
// sorted (spec.md: "Ordered by start address").
func Compare(a, b *Area) int {
	return a.Start.Compare(b.Start)
}
