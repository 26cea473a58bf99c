package eval

import (
	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/errs"
)

// pageSize is the granularity at which MemoryContext pages are
// copy-on-written away from their backing Document memory area.
const pageSize = 4096

// HookFunc backs a page with a callback instead of bytes, e.g. to model
// memory-mapped I/O during symbolic evaluation.
type HookFunc func(address addr.Address, buf []byte, write bool) error

type page struct {
	base  addr.Address
	data  []byte // nil if hook != nil
	hook  HookFunc
	owned bool // true once copy-on-write has materialized a private copy
}

// MemoryContext is a paged virtual memory view whose pages may be backed by
// an inherited Document memory area (copy-on-write on first write), a
// private anonymous allocation, or a hook.
type MemoryContext struct {
	document *doc.Document
	pages    map[addr.Address]*page // keyed by page-aligned base
}

// NewMemoryContext creates an empty memory context.
func NewMemoryContext() *MemoryContext {
	return &MemoryContext{pages: make(map[addr.Address]*page)}
}

// MapDatabase attaches a Document whose memory areas back reads for any
// address not already covered by a private allocation.
func (m *MemoryContext) MapDatabase(d *doc.Document) { m.document = d }

func pageBase(a addr.Address) addr.Address {
	aligned := (a.Linear() / pageSize) * pageSize
	out := a
	out.Base = 0
	out.Offset = aligned
	out.OffsetBits = 64

	return out
}

// Allocate creates one private page of pageSize bytes for the page holding
// addr, pre-filled with data if given. size is not consulted: the page is
// never larger than pageSize, and data past its end is dropped. It fails
// with errs.Overlap if a private page already exists there.
func (m *MemoryContext) Allocate(address addr.Address, size int, data []byte) error {
	base := pageBase(address)

	if _, ok := m.pages[base]; ok {
		return errs.New("mem.Allocate", errs.Overlap, address)
	}

	buf := make([]byte, pageSize)
	copy(buf, data)

	m.pages[base] = &page{base: base, data: buf, owned: true}

	return nil
}

// AllocateHook installs a hook-backed page at addr.
func (m *MemoryContext) AllocateHook(address addr.Address, hook HookFunc) {
	base := pageBase(address)
	m.pages[base] = &page{base: base, hook: hook}
}

// FindMemory returns the page covering address, materializing a
// copy-on-write page from the Document if one exists there and no private
// page does yet.
func (m *MemoryContext) FindMemory(address addr.Address) (*page, bool) {
	base := pageBase(address)

	if p, ok := m.pages[base]; ok {
		return p, true
	}

	if m.document == nil {
		return nil, false
	}

	area, ok := m.document.MemoryAreaAt(address)
	if !ok {
		return nil, false
	}

	buf := make([]byte, pageSize)

	if off, err := area.Offset(base); err == nil {
		copy(buf, area.Bytes()[off:])
	}

	p := &page{base: base, data: buf}
	m.pages[base] = p

	return p, true
}

// ReadMemory copies nbytes starting at address into buf. A read spanning
// beyond an available page yields errs.Truncated.
func (m *MemoryContext) ReadMemory(address addr.Address, buf []byte, nbytes int) error {
	if len(buf) < nbytes {
		nbytes = len(buf)
	}

	read := 0

	for read < nbytes {
		cur := address.MoveBy(int64(read))

		p, ok := m.FindMemory(cur)
		if !ok {
			return errs.New("mem.ReadMemory", errs.Truncated, address)
		}

		base := pageBase(cur)
		pageOff := cur.Linear() - base.Linear()
		n := nbytes - read

		if p.hook != nil {
			if err := p.hook(cur, buf[read:read+n], false); err != nil {
				return errs.Wrap("mem.ReadMemory", errs.IO, address, err)
			}

			read += n

			continue
		}

		avail := pageSize - int(pageOff)
		if n > avail {
			n = avail
		}

		copy(buf[read:read+n], p.data[pageOff:int(pageOff)+n])
		read += n
	}

	return nil
}

// WriteMemory writes nbytes from buf into address, copy-on-writing the
// backing page away from the Document on first write.
func (m *MemoryContext) WriteMemory(address addr.Address, buf []byte, nbytes int) error {
	if len(buf) < nbytes {
		nbytes = len(buf)
	}

	written := 0

	for written < nbytes {
		cur := address.MoveBy(int64(written))

		p, ok := m.FindMemory(cur)
		if !ok {
			return errs.New("mem.WriteMemory", errs.Truncated, address)
		}

		base := pageBase(cur)
		pageOff := cur.Linear() - base.Linear()
		n := nbytes - written

		if p.hook != nil {
			if err := p.hook(cur, buf[written:written+n], true); err != nil {
				return errs.Wrap("mem.WriteMemory", errs.IO, address, err)
			}

			written += n

			continue
		}

		if !p.owned {
			owned := make([]byte, pageSize)
			copy(owned, p.data)
			p.data = owned
			p.owned = true
		}

		avail := pageSize - int(pageOff)
		if n > avail {
			n = avail
		}

		copy(p.data[pageOff:int(pageOff)+n], buf[written:written+n])
		written += n
	}

	return nil
}
