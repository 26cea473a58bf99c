package doc

import (
	"sync"

	"github.com/medusa-project/medusa/internal/addr"
)

// xrefTable holds two inverse multimaps: fromMap[to] = set of addresses
// referencing to, toMap[from] = the single address from references. The
// invariant toMap[a] = b iff a in fromMap[b] is maintained by construction:
// every mutation updates both sides together.
type xrefTable struct {
	mu      sync.RWMutex
	fromMap map[addr.Address]map[addr.Address]struct{} // to -> {from...}
	toMap   map[addr.Address]addr.Address              // from -> to
}

func newXrefTable() *xrefTable {
	return &xrefTable{
		fromMap: make(map[addr.Address]map[addr.Address]struct{}),
		toMap:   make(map[addr.Address]addr.Address),
	}
}

// add records a reference from 'from' to 'to'. Idempotent: adding the same
// edge twice has the same effect as once.
func (x *xrefTable) add(to, from addr.Address) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if prevTo, ok := x.toMap[from]; ok && prevTo != to {
		if set := x.fromMap[prevTo]; set != nil {
			delete(set, from)
		}
	}

	x.toMap[from] = to

	set, ok := x.fromMap[to]
	if !ok {
		set = make(map[addr.Address]struct{})
		x.fromMap[to] = set
	}

	set[from] = struct{}{}
}

// remove drops the single outgoing reference originating at from.
func (x *xrefTable) remove(from addr.Address) {
	x.mu.Lock()
	defer x.mu.Unlock()

	to, ok := x.toMap[from]
	if !ok {
		return
	}

	delete(x.toMap, from)

	if set := x.fromMap[to]; set != nil {
		delete(set, from)

		if len(set) == 0 {
			delete(x.fromMap, to)
		}
	}
}

// removeAllTouching drops every xref where address is either the source or
// the target, used when a cell covering address is erased.
func (x *xrefTable) removeAllTouching(address addr.Address) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if to, ok := x.toMap[address]; ok {
		delete(x.toMap, address)

		if set := x.fromMap[to]; set != nil {
			delete(set, address)

			if len(set) == 0 {
				delete(x.fromMap, to)
			}
		}
	}

	if set, ok := x.fromMap[address]; ok {
		for from := range set {
			delete(x.toMap, from)
		}

		delete(x.fromMap, address)
	}
}

func (x *xrefTable) from(to addr.Address) addr.List {
	x.mu.RLock()
	defer x.mu.RUnlock()

	set := x.fromMap[to]
	out := make(addr.List, 0, len(set))

	for a := range set {
		out = append(out, a)
	}

	return out
}

func (x *xrefTable) to(from addr.Address) (addr.Address, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	a, ok := x.toMap[from]

	return a, ok
}

// targets returns every address that is the target of at least one
// cross-reference, i.e. the key set of fromMap. Used by persistence to
// enumerate the full xref relation rather than just the addresses that
// happen to also carry a label.
func (x *xrefTable) targets() addr.List {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(addr.List, 0, len(x.fromMap))

	for to := range x.fromMap {
		out = append(out, to)
	}

	return out
}
