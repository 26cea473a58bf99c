// Package track implements the Track and BackTrack visitors used to follow
// a value's def-use chain through the Expression IR: Track stamps
// identifiers with the address of their last definition as a trace is
// walked forward; BackTrack, given a set of stamped identifiers of
// interest, walks a later expression to decide whether it still depends on
// one of them.
package track

import (
	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/expr"
)

// Context remembers, for each register id, the address of its most recent
// definition as Track walks a sequence of expressions forward.
type Context struct {
	lastDef map[uint32]addr.Address
}

func NewContext() *Context {
	return &Context{lastDef: make(map[uint32]addr.Address)}
}

// LastDef returns the address that most recently defined register id.
func (c *Context) LastDef(id uint32) (addr.Address, bool) {
	a, ok := c.lastDef[id]
	return a, ok
}

// Visitor rewrites every Id(r) inside an Assign's RHS into
// TrackedId(r, cpu, current_addr), then records that r's most recent
// definition is at current_addr. It is a CloneVisitor variant: non-Assign
// nodes are cloned and recursed into unchanged so the caller always gets a
// fresh tree, independent from the one being tracked.
type Visitor struct {
	expr.BaseVisitor

	Context *Context
	At      addr.Address
}

// New creates a Track visitor that will stamp identifiers with at as their
// definition site, recording definitions into ctx.
func New(ctx *Context, at addr.Address) *Visitor {
	return &Visitor{Context: ctx, At: at}
}

// Apply clones e, applying the Track rewrite to every Assign node found.
func (v *Visitor) Apply(e expr.Expression) expr.Expression {
	return expr.Walk(e.Clone(), func(n expr.Expression) expr.Expression {
		if a, ok := n.(*expr.Assign); ok {
			return v.VisitAssign(a)
		}

		return n
	})
}

func (v *Visitor) VisitAssign(a *expr.Assign) expr.Expression {
	a.Src = v.trackIdentifiers(a.Src)

	for _, id := range destinationIDs(a.Dst) {
		v.Context.lastDef[id] = v.At
	}

	return a
}

// trackIdentifiers walks e, replacing every Id with a TrackedId stamped at
// v.At, and recursing into composite nodes via expr.Walk.
func (v *Visitor) trackIdentifiers(e expr.Expression) expr.Expression {
	return expr.Walk(e, func(n expr.Expression) expr.Expression {
		if id, ok := n.(*expr.Id); ok {
			return &expr.TrackedId{RegID: id.RegID, Info: id.Info, DefAddr: v.At}
		}

		return n
	})
}

func destinationIDs(dst expr.Expression) []uint32 {
	switch d := dst.(type) {
	case *expr.Id:
		return []uint32{d.RegID}
	case *expr.TrackedId:
		return []uint32{d.RegID}
	case *expr.VecId:
		return d.RegIDs
	default:
		return nil
	}
}

func (v *Visitor) VisitBind(b *expr.Bind) expr.Expression {
	for i, e := range b.Exprs {
		b.Exprs[i] = e.Visit(v)
	}

	return b
}
