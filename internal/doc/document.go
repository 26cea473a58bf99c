// Package doc implements the Document: the aggregate, thread-safe model of
// a disassembled program. It owns memory areas, cells, multi-cells, labels,
// cross-references, comments, detail records, and address history, and
// publishes change events to subscribers after each mutation commits.
//
// Concurrency follows the fixed acquisition order areas -> cells ->
// multicells -> labels -> xrefs; no operation in this package acquires
// locks out of that order, which is what makes the order safe to fix once
// and never revisit per call site.
package doc

import (
	"sort"
	"sync"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/mem"
)

// Document is the single source of truth for every address-keyed fact
// about a program under analysis.
type Document struct {
	areasMu sync.RWMutex
	areas   []*mem.Area // kept sorted by start address

	cellsMu    sync.RWMutex
	cells      map[addr.Address]*Cell
	cellStarts []addr.Address // sorted, parallel index for range lookups

	multicellsMu sync.RWMutex
	multicells   map[addr.Address]*MultiCell

	labels *labelTable
	xrefs  *xrefTable

	commentsMu sync.RWMutex
	comments   map[addr.Address]string

	details *DetailStore
	history *History

	pub *publisher
}

// New creates an empty Document.
func New() *Document {
	return &Document{
		cells:      make(map[addr.Address]*Cell),
		multicells: make(map[addr.Address]*MultiCell),
		labels:     newLabelTable(),
		xrefs:      newXrefTable(),
		comments:   make(map[addr.Address]string),
		details:    newDetailStore(),
		history:    NewHistory(),
		pub:        newPublisher(),
	}
}

// Subscribe registers a new event subscriber.
func (d *Document) Subscribe() *Subscriber { return d.pub.subscribe() }

// ---- memory areas -------------------------------------------------------

// AddMemoryArea inserts area into the Document, failing with errs.Overlap
// if its linear range intersects an existing area.
func (d *Document) AddMemoryArea(area *mem.Area) error {
	d.areasMu.Lock()

	for _, existing := range d.areas {
		if existing.Overlaps(area) {
			d.areasMu.Unlock()
			return errs.New("doc.AddMemoryArea", errs.Overlap, area.Start)
		}
	}

	d.areas = append(d.areas, area)
	sort.Slice(d.areas, func(i, j int) bool { return mem.Compare(d.areas[i], d.areas[j]) < 0 })

	d.areasMu.Unlock()

	d.pub.publish(Event{Kind: EventMemoryAreaUpdated, Area: &AreaUpdate{Name: area.Name, Removed: false}})
	d.pub.publish(Event{Kind: EventDocumentUpdated})

	return nil
}

// MemoryAreaAt returns the area containing address, if any.
func (d *Document) MemoryAreaAt(address addr.Address) (*mem.Area, bool) {
	d.areasMu.RLock()
	defer d.areasMu.RUnlock()

	for _, a := range d.areas {
		if a.Contains(address) {
			return a, true
		}
	}

	return nil, false
}

// Areas returns a snapshot of the Document's memory areas, sorted by start.
func (d *Document) Areas() []*mem.Area {
	d.areasMu.RLock()
	defer d.areasMu.RUnlock()

	out := make([]*mem.Area, len(d.areas))
	copy(out, d.areas)

	return out
}

// FirstAddress returns the lowest mapped address, if any area exists.
func (d *Document) FirstAddress() (addr.Address, bool) {
	d.areasMu.RLock()
	defer d.areasMu.RUnlock()

	if len(d.areas) == 0 {
		return addr.Address{}, false
	}

	return d.areas[0].Start, true
}

// LastAddress returns the highest mapped address (inclusive), if any area
// exists.
func (d *Document) LastAddress() (addr.Address, bool) {
	d.areasMu.RLock()
	defer d.areasMu.RUnlock()

	if len(d.areas) == 0 {
		return addr.Address{}, false
	}

	last := d.areas[len(d.areas)-1]

	return last.End().MoveBy(-1), true
}

// ---- cells ----------------------------------------------------------------

// CellAt returns the cell covering address. If no explicit cell has been
// set there, it reports CellUnknown over the remainder of the owning area
// without the true Unknown sea being materialized as a Cell record.
func (d *Document) CellAt(address addr.Address) (*Cell, bool) {
	d.cellsMu.RLock()
	defer d.cellsMu.RUnlock()

	return d.cellCoveringLocked(address)
}

// cellCoveringLocked requires cellsMu to be held for reading.
func (d *Document) cellCoveringLocked(address addr.Address) (*Cell, bool) {
	i := sort.Search(len(d.cellStarts), func(i int) bool {
		return !d.cellStarts[i].Less(address)
	})

	if i < len(d.cellStarts) && d.cellStarts[i].Equal(address) {
		return d.cells[d.cellStarts[i]], true
	}

	if i == 0 {
		return nil, false
	}

	start := d.cellStarts[i-1]
	c := d.cells[start]
	end := start.MoveBy(int64(c.LengthBytes))

	if address.Linear() < end.Linear() {
		return c, true
	}

	return nil, false
}

// SetCell installs cell at address. If force is false and an existing cell
// already covers any byte in the new cell's range, SetCell fails with
// errs.Conflict and makes no partial change. If force is true, every cell
// whose range overlaps [address, address+len) is removed first, along with
// the cross-references touching those addresses.
func (d *Document) SetCell(address addr.Address, cell *Cell, force bool) error {
	d.cellsMu.Lock()

	overlapping := d.overlappingStartsLocked(address, cell.LengthBytes)

	if len(overlapping) > 0 && !(len(overlapping) == 1 && overlapping[0].Equal(address) && force) {
		if !force {
			d.cellsMu.Unlock()
			return errs.New("doc.SetCell", errs.Conflict, address)
		}
	}

	for _, start := range overlapping {
		d.removeCellLocked(start)
	}

	d.insertCellLocked(address, cell)
	d.cellsMu.Unlock()

	for _, start := range overlapping {
		d.xrefs.removeAllTouching(start)
	}

	d.pub.publish(Event{Kind: EventAddressUpdated, Addresses: addr.List{address}})
	d.pub.publish(Event{Kind: EventDocumentUpdated})

	return nil
}

// overlappingStartsLocked returns the start addresses of every existing
// cell overlapping [address, address+length). Requires cellsMu held.
func (d *Document) overlappingStartsLocked(address addr.Address, length int) []addr.Address {
	end := address.MoveBy(int64(length))

	var out []addr.Address

	for _, start := range d.cellStarts {
		c := d.cells[start]
		cellEnd := start.MoveBy(int64(c.LengthBytes))

		if start.Linear() < end.Linear() && address.Linear() < cellEnd.Linear() {
			out = append(out, start)
		}
	}

	return out
}

func (d *Document) insertCellLocked(address addr.Address, cell *Cell) {
	d.cells[address] = cell

	i := sort.Search(len(d.cellStarts), func(i int) bool { return !d.cellStarts[i].Less(address) })
	d.cellStarts = append(d.cellStarts, addr.Address{})
	copy(d.cellStarts[i+1:], d.cellStarts[i:])
	d.cellStarts[i] = address
}

func (d *Document) removeCellLocked(address addr.Address) {
	delete(d.cells, address)

	i := sort.Search(len(d.cellStarts), func(i int) bool { return !d.cellStarts[i].Less(address) })
	if i < len(d.cellStarts) && d.cellStarts[i].Equal(address) {
		d.cellStarts = append(d.cellStarts[:i], d.cellStarts[i+1:]...)
	}

	d.unbindMulticellsCoveringLocked(address)
}

// RemoveCell erases the cell starting at address, if any, unbinding any
// multi-cell that referenced it and dropping touching cross-references.
func (d *Document) RemoveCell(address addr.Address) {
	d.cellsMu.Lock()
	_, existed := d.cells[address]
	d.removeCellLocked(address)
	d.cellsMu.Unlock()

	if existed {
		d.xrefs.removeAllTouching(address)
		d.pub.publish(Event{Kind: EventAddressUpdated, Addresses: addr.List{address}})
		d.pub.publish(Event{Kind: EventDocumentUpdated})
	}
}

func (d *Document) unbindMulticellsCoveringLocked(address addr.Address) {
	d.multicellsMu.Lock()
	defer d.multicellsMu.Unlock()

	for start, mc := range d.multicells {
		end := start.MoveBy(int64(mc.SizeByte))
		if start.Linear() <= address.Linear() && address.Linear() < end.Linear() {
			delete(d.multicells, start)
		}
	}
}

// ---- multi-cells ------------------------------------------------------

// AddMultiCell registers mc covering [address, address+mc.SizeByte). Every
// byte in that range must already belong to a cell of a type compatible
// with mc.Type.
func (d *Document) AddMultiCell(address addr.Address, mc *MultiCell) error {
	d.cellsMu.RLock()

	cur := address
	end := address.MoveBy(int64(mc.SizeByte))

	for cur.Linear() < end.Linear() {
		c, ok := d.cellCoveringLocked(cur)
		if !ok || !compatible(mc.Type, c.Type) {
			d.cellsMu.RUnlock()
			return errs.New("doc.AddMultiCell", errs.Conflict, cur)
		}

		cur = cur.MoveBy(int64(c.LengthBytes))
	}

	d.cellsMu.RUnlock()

	d.multicellsMu.Lock()
	d.multicells[address] = mc
	d.multicellsMu.Unlock()

	d.pub.publish(Event{Kind: EventDocumentUpdated})

	return nil
}

// MultiCellAt returns the multi-cell starting exactly at address.
func (d *Document) MultiCellAt(address addr.Address) (*MultiCell, bool) {
	d.multicellsMu.RLock()
	defer d.multicellsMu.RUnlock()

	mc, ok := d.multicells[address]

	return mc, ok
}

// RemoveMultiCell drops the multi-cell starting at address.
func (d *Document) RemoveMultiCell(address addr.Address) {
	d.multicellsMu.Lock()
	delete(d.multicells, address)
	d.multicellsMu.Unlock()
}

// ForEachMultiCell calls fn once per multi-cell, in a consistent snapshot
// taken under lock, mirroring ForEachLabel's re-entrancy tolerance.
func (d *Document) ForEachMultiCell(fn func(addr.Address, *MultiCell)) {
	d.multicellsMu.RLock()
	snapshot := make(map[addr.Address]*MultiCell, len(d.multicells))
	for a, mc := range d.multicells {
		snapshot[a] = mc
	}
	d.multicellsMu.RUnlock()

	for a, mc := range snapshot {
		fn(a, mc)
	}
}

// ForEachCell calls fn once per explicitly-set cell, in ascending address
// order.
func (d *Document) ForEachCell(fn func(addr.Address, *Cell)) {
	d.cellsMu.RLock()
	starts := make([]addr.Address, len(d.cellStarts))
	copy(starts, d.cellStarts)
	cells := make(map[addr.Address]*Cell, len(d.cells))
	for a, c := range d.cells {
		cells[a] = c
	}
	d.cellsMu.RUnlock()

	for _, a := range starts {
		fn(a, cells[a])
	}
}

// Details exposes the detail record store (function/value/structure
// signatures keyed by content-addressed DetailID).
func (d *Document) Details() *DetailStore { return d.details }

// ---- labels ---------------------------------------------------------------

// AddLabel binds name to address, enforcing bijectivity. With force, a
// colliding name first evicts its prior address, emitting
// LabelUpdated(removed=true) before the new LabelUpdated(removed=false).
func (d *Document) AddLabel(address addr.Address, name string, typ LabelType, force bool) error {
	evicted, err := d.labels.add(address, name, typ, force)
	if err != nil {
		return err
	}

	if evicted != nil {
		d.pub.publish(Event{Kind: EventLabelUpdated, LabelAddr: address, Label: *evicted, LabelRemoved: true})
	}

	d.pub.publish(Event{Kind: EventLabelUpdated, LabelAddr: address, Label: Label{Name: name, Type: typ}, LabelRemoved: false})
	d.pub.publish(Event{Kind: EventDocumentUpdated})

	return nil
}

// RemoveLabel unbinds whatever label is at address, if any.
func (d *Document) RemoveLabel(address addr.Address) {
	l, ok := d.labels.remove(address)
	if !ok {
		return
	}

	d.pub.publish(Event{Kind: EventLabelUpdated, LabelAddr: address, Label: l, LabelRemoved: true})
	d.pub.publish(Event{Kind: EventDocumentUpdated})
}

// LabelAt returns the label bound to address, if any.
func (d *Document) LabelAt(address addr.Address) (Label, bool) { return d.labels.at(address) }

// AddressOfLabel returns the address name is bound to, if any.
func (d *Document) AddressOfLabel(name string) (addr.Address, bool) { return d.labels.addressOf(name) }

// ForEachLabel calls fn once per label, walking a snapshot taken before the
// first call. fn may itself call AddLabel or RemoveLabel; those mutations
// take effect immediately and are not buffered, but the walk still visits
// exactly the snapshot's labels.
func (d *Document) ForEachLabel(fn func(addr.Address, Label)) { d.labels.forEach(fn) }

// ---- cross-references ---------------------------------------------------

// AddCrossRef records a reference from the from address to the to address.
func (d *Document) AddCrossRef(to, from addr.Address) {
	d.xrefs.add(to, from)
	d.pub.publish(Event{Kind: EventDocumentUpdated})
}

// RemoveCrossRef drops the outgoing reference originating at from.
func (d *Document) RemoveCrossRef(from addr.Address) {
	d.xrefs.remove(from)
	d.pub.publish(Event{Kind: EventDocumentUpdated})
}

// XrefsFrom returns every address referencing to.
func (d *Document) XrefsFrom(to addr.Address) addr.List { return d.xrefs.from(to) }

// XrefTo returns the single address that 'from' references, if any.
func (d *Document) XrefTo(from addr.Address) (addr.Address, bool) { return d.xrefs.to(from) }

// XrefTargets returns every address that is the target of at least one
// cross-reference, whether or not that address also carries a label.
func (d *Document) XrefTargets() addr.List { return d.xrefs.targets() }

// ---- comments -----------------------------------------------------------

// SetComment attaches text to address, replacing any prior comment.
func (d *Document) SetComment(address addr.Address, text string) {
	d.commentsMu.Lock()
	d.comments[address] = text
	d.commentsMu.Unlock()

	d.pub.publish(Event{Kind: EventAddressUpdated, Addresses: addr.List{address}})
}

// GetComment returns the comment at address, if any.
func (d *Document) GetComment(address addr.Address) (string, bool) {
	d.commentsMu.RLock()
	defer d.commentsMu.RUnlock()

	c, ok := d.comments[address]

	return c, ok
}

// ForEachComment calls fn once per comment, in a consistent snapshot.
func (d *Document) ForEachComment(fn func(addr.Address, string)) {
	d.commentsMu.RLock()
	snapshot := make(map[addr.Address]string, len(d.comments))
	for a, c := range d.comments {
		snapshot[a] = c
	}
	d.commentsMu.RUnlock()

	for a, c := range snapshot {
		fn(a, c)
	}
}

// ---- navigation -----------------------------------------------------------

// MoveAddress walks delta cells (positive forward, negative backward) from
// address, honoring per-cell lengths and crossing area boundaries.
func (d *Document) MoveAddress(address addr.Address, delta int) (addr.Address, bool) {
	cur := address
	step := 1

	if delta < 0 {
		step = -1
		delta = -delta
	}

	for i := 0; i < delta; i++ {
		var ok bool

		if step > 0 {
			cur, ok = d.NextAddress(cur)
		} else {
			cur, ok = d.PreviousAddress(cur)
		}

		if !ok {
			return addr.Address{}, false
		}
	}

	return cur, true
}

// NextAddress returns the start of the cell immediately following the one
// covering address.
func (d *Document) NextAddress(address addr.Address) (addr.Address, bool) {
	d.cellsMu.RLock()

	c, ok := d.cellCoveringLocked(address)
	if !ok {
		d.cellsMu.RUnlock()
		return addr.Address{}, false
	}

	next := d.findStartLocked(address).MoveBy(int64(c.LengthBytes))
	_, covered := d.cellCoveringLocked(next)
	d.cellsMu.RUnlock()

	if covered {
		return next, true
	}

	if area, ok := d.MemoryAreaAt(next); ok && area.Contains(next) {
		return next, true
	}

	return addr.Address{}, false
}

// PreviousAddress returns the start of the cell immediately preceding the
// one covering address.
func (d *Document) PreviousAddress(address addr.Address) (addr.Address, bool) {
	d.cellsMu.RLock()
	defer d.cellsMu.RUnlock()

	start := d.findStartLocked(address)

	i := sort.Search(len(d.cellStarts), func(i int) bool { return !d.cellStarts[i].Less(start) })
	if i == 0 || len(d.cellStarts) == 0 {
		return addr.Address{}, false
	}

	return d.cellStarts[i-1], true
}

func (d *Document) findStartLocked(address addr.Address) addr.Address {
	i := sort.Search(len(d.cellStarts), func(i int) bool { return !d.cellStarts[i].Less(address) })
	if i < len(d.cellStarts) && d.cellStarts[i].Equal(address) {
		return address
	}

	if i == 0 {
		return address
	}

	return d.cellStarts[i-1]
}

// NearestAddress returns the start of the cell at or before address.
func (d *Document) NearestAddress(address addr.Address) (addr.Address, bool) {
	d.cellsMu.RLock()
	defer d.cellsMu.RUnlock()

	if len(d.cellStarts) == 0 {
		return addr.Address{}, false
	}

	return d.findStartLocked(address), true
}

// ConvertAddressToPosition returns the dense 0-based index of address among
// every address that has a cell, or false if address has none.
func (d *Document) ConvertAddressToPosition(address addr.Address) (int, bool) {
	d.cellsMu.RLock()
	defer d.cellsMu.RUnlock()

	i := sort.Search(len(d.cellStarts), func(i int) bool { return !d.cellStarts[i].Less(address) })
	if i < len(d.cellStarts) && d.cellStarts[i].Equal(address) {
		return i, true
	}

	return 0, false
}

// ConvertPositionToAddress is the inverse of ConvertAddressToPosition.
func (d *Document) ConvertPositionToAddress(position int) (addr.Address, bool) {
	d.cellsMu.RLock()
	defer d.cellsMu.RUnlock()

	if position < 0 || position >= len(d.cellStarts) {
		return addr.Address{}, false
	}

	return d.cellStarts[position], true
}

// ConvertAddressToFileOffset maps address to its offset within the owning
// memory area's backing bytes.
func (d *Document) ConvertAddressToFileOffset(address addr.Address) (uint64, error) {
	area, ok := d.MemoryAreaAt(address)
	if !ok {
		return 0, errs.New("doc.ConvertAddressToFileOffset", errs.NotFound, address)
	}

	return area.Offset(address)
}

// History exposes the Document's address-navigation history.
func (d *Document) History() *History { return d.history }
