package track

import (
	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/expr"
)

// interest is one (register, definition address) pair BackTrack is
// currently pursuing.
type interest struct {
	regID   uint32
	defAddr addr.Address
}

// BackTrackContext holds the set of (reg_id, def_addr) pairs a BackTrack
// pass is currently pursuing, and is updated in place as the pass follows
// the def-use chain one step upstream per Assign it crosses.
type BackTrackContext struct {
	interests map[interest]struct{}
}

// NewBackTrackContext seeds a context with one tracked identifier of
// interest.
func NewBackTrackContext(regID uint32, defAddr addr.Address) *BackTrackContext {
	c := &BackTrackContext{interests: make(map[interest]struct{})}
	c.interests[interest{regID, defAddr}] = struct{}{}

	return c
}

func (c *BackTrackContext) has(regID uint32, defAddr addr.Address) bool {
	_, ok := c.interests[interest{regID, defAddr}]
	return ok
}

// Has reports whether (regID, defAddr) is currently one of the context's
// interests.
func (c *BackTrackContext) Has(regID uint32, defAddr addr.Address) bool {
	return c.has(regID, defAddr)
}

func (c *BackTrackContext) add(regID uint32, defAddr addr.Address) {
	c.interests[interest{regID, defAddr}] = struct{}{}
}

// BackTrackVisitor walks an expression looking for a TrackedId matching one
// of its Context's interests. When it finds an Assign whose destination is
// a tracked id of interest, it reports a hit and adds the RHS's
// identifiers as new interests, following the chain one step upstream.
type BackTrackVisitor struct {
	expr.BaseVisitor

	Context *BackTrackContext
	Hit     bool
}

func NewBackTrackVisitor(ctx *BackTrackContext) *BackTrackVisitor {
	return &BackTrackVisitor{Context: ctx}
}

// Reaches reports whether e references any identifier the context is
// pursuing, updating the context to pursue further upstream definitions
// when an Assign to a tracked id is found.
func Reaches(ctx *BackTrackContext, e expr.Expression) bool {
	v := NewBackTrackVisitor(ctx)

	expr.Walk(e, func(n expr.Expression) expr.Expression {
		switch n.(type) {
		case *expr.Assign, *expr.TrackedId:
			n.Visit(v)
		}

		return n
	})

	return v.Hit
}

func (v *BackTrackVisitor) VisitTrackedId(t *expr.TrackedId) expr.Expression {
	if t.DefAddr != nil && v.Context.has(t.RegID, asAddress(t.DefAddr)) {
		v.Hit = true
	}

	return t
}

func (v *BackTrackVisitor) VisitAssign(a *expr.Assign) expr.Expression {
	a.Src.Visit(v)

	if tid, ok := a.Dst.(*expr.TrackedId); ok {
		if v.Context.has(tid.RegID, asAddress(tid.DefAddr)) {
			v.Hit = true

			expr.Walk(a.Src, func(n expr.Expression) expr.Expression {
				if id, ok := n.(*expr.TrackedId); ok {
					v.Context.add(id.RegID, asAddress(id.DefAddr))
				}

				return n
			})
		}
	}

	return a
}

func (v *BackTrackVisitor) VisitBind(b *expr.Bind) expr.Expression {
	for _, e := range b.Exprs {
		e.Visit(v)
	}

	return b
}

func asAddress(s interface{ String() string }) addr.Address {
	if a, ok := s.(addr.Address); ok {
		return a
	}

	return addr.Address{}
}
