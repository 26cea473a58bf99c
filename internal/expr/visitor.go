package expr

// Visitor is implemented by passes over an Expression tree: Evaluate
// (internal/eval), Track and BackTrack (internal/track). Clone, Walk and
// Filter do not use it. Each hook receives the concrete node and
// returns the expression that should replace it in the caller's context;
// a hook that doesn't rewrite its node just returns it unchanged.
type Visitor interface {
	VisitConst(*Const) Expression
	VisitId(*Id) Expression
	VisitVecId(*VecId) Expression
	VisitTrackedId(*TrackedId) Expression
	VisitMem(*Mem) Expression
	VisitOp(*Op) Expression
	VisitAssign(*Assign) Expression
	VisitCond(*Cond) Expression
	VisitTernaryCond(*TernaryCond) Expression
	VisitIfElseCond(*IfElseCond) Expression
	VisitWhileCond(*WhileCond) Expression
	VisitBind(*Bind) Expression
	VisitSym(*Sym) Expression
	VisitSystem(*System) Expression
}

// BaseVisitor is the identity visitor: every hook returns its argument
// unchanged. Specialized visitors embed BaseVisitor by value and override
// only the hooks they care about, the way the teacher's cli command types
// embed a common base and override single methods (internal/cli/cmd).
type BaseVisitor struct{}

func (BaseVisitor) VisitConst(c *Const) Expression             { return c }
func (BaseVisitor) VisitId(i *Id) Expression                   { return i }
func (BaseVisitor) VisitVecId(v *VecId) Expression             { return v }
func (BaseVisitor) VisitTrackedId(t *TrackedId) Expression     { return t }
func (BaseVisitor) VisitMem(m *Mem) Expression                 { return m }
func (BaseVisitor) VisitOp(o *Op) Expression                   { return o }
func (BaseVisitor) VisitAssign(a *Assign) Expression           { return a }
func (BaseVisitor) VisitCond(c *Cond) Expression                { return c }
func (BaseVisitor) VisitTernaryCond(t *TernaryCond) Expression { return t }
func (BaseVisitor) VisitIfElseCond(i *IfElseCond) Expression   { return i }
func (BaseVisitor) VisitWhileCond(w *WhileCond) Expression     { return w }
func (BaseVisitor) VisitBind(b *Bind) Expression               { return b }
func (BaseVisitor) VisitSym(s *Sym) Expression                 { return s }
func (BaseVisitor) VisitSystem(s *System) Expression           { return s }

// Walk applies fn to every node in the tree rooted at e, in pre-order, then
// rewrites e's children in place via UpdateChild when fn returns a different
// node. It descends into the node fn returns, so a replacement's own
// children are visited too.
func Walk(e Expression, fn func(Expression) Expression) Expression {
	if e == nil {
		return nil
	}

	e = fn(e)

	for _, child := range children(e) {
		newChild := Walk(child, fn)
		if newChild != child {
			e.UpdateChild(child, newChild)
		}
	}

	return e
}

// children returns the direct child expressions of e, for generic
// traversal (Walk, Filter). Leaf kinds return nil.
func children(e Expression) []Expression {
	switch n := e.(type) {
	case *Mem:
		return []Expression{n.Base, n.Offset}
	case *Op:
		return []Expression{n.Lhs, n.Rhs}
	case *Assign:
		return []Expression{n.Dst, n.Src}
	case *Cond:
		return []Expression{n.Ref, n.Test}
	case *TernaryCond:
		return []Expression{n.Cond, n.True, n.False}
	case *IfElseCond:
		return []Expression{n.Cond, n.Then, n.Else}
	case *WhileCond:
		return []Expression{n.Cond, n.Body}
	case *Bind:
		return append([]Expression(nil), n.Exprs...)
	default:
		return nil
	}
}

// Filter reports whether pred holds for e or any of its descendants.
func Filter(e Expression, pred func(Expression) bool) bool {
	if e == nil {
		return false
	}

	if pred(e) {
		return true
	}

	for _, c := range children(e) {
		if Filter(c, pred) {
			return true
		}
	}

	return false
}
