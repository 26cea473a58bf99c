package expr_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/expr"
)

type fakeCpu struct{}

func (fakeCpu) RegisterName(id uint32) string { return "r" + string(rune('0'+id)) }
func (fakeCpu) RegisterWidth(uint32) int      { return 16 }

func TestConstTruncatesOnConstruction(t *testing.T) {
	c := expr.NewConst(8, 0x1ff, false)
	if c.Uint64() != 0xff {
		t.Fatalf("got %#x, want 0xff", c.Uint64())
	}
}

func TestConstSignExtend(t *testing.T) {
	c := expr.NewConst(8, 0xff, true) // -1 at 8 bits

	if !c.SignExtend(16) {
		t.Fatal("expected SignExtend to succeed")
	}

	if c.Uint64() != 0xffff {
		t.Fatalf("got %#x, want 0xffff", c.Uint64())
	}

	if c.Int64() != -1 {
		t.Fatalf("got %d, want -1", c.Int64())
	}
}

func TestConstSignExtendRejectsSmallerWidth(t *testing.T) {
	c := expr.NewConst(16, 1, false)
	if c.SignExtend(8) {
		t.Fatal("expected SignExtend to reject a smaller width")
	}
}

func TestCloneIsDeepAndIdempotent(t *testing.T) {
	cpu := fakeCpu{}

	assign := &expr.Assign{
		Dst: &expr.Id{RegID: 0, Info: cpu},
		Src: &expr.Op{
			Type: expr.OpAdd,
			Lhs:  &expr.Id{RegID: 1, Info: cpu},
			Rhs:  expr.NewConst(16, 4, false),
		},
	}

	clone := assign.Clone().(*expr.Assign)

	if clone == expr.Expression(assign) {
		t.Fatal("clone returned the same pointer")
	}

	if clone.Src.(*expr.Op).Rhs == assign.Src.(*expr.Op).Rhs {
		t.Fatal("clone shared a leaf pointer with the original")
	}

	if clone.String() != assign.String() {
		t.Fatalf("clone diverged: %s vs %s", clone, assign)
	}

	reclone := clone.Clone()
	if reclone.String() != clone.String() {
		t.Fatal("Clone is not idempotent under re-application")
	}
}

func TestCloneCond(t *testing.T) {
	c := &expr.Cond{Type: expr.CondEq, Ref: expr.NewConst(16, 1, false), Test: expr.NewConst(16, 1, false)}

	clone := c.Clone().(*expr.Cond)
	if clone.Ref == expr.Expression(c.Ref) {
		t.Fatal("Cond.Clone shared the Ref pointer")
	}

	tern := &expr.TernaryCond{Cond: c, True: expr.NewConst(16, 1, false), False: expr.NewConst(16, 0, false)}
	tclone := tern.Clone().(*expr.TernaryCond)

	if tclone.Cond == tern.Cond {
		t.Fatal("TernaryCond.Clone shared the Cond pointer")
	}
}

func TestUpdateChildReplacesByIdentity(t *testing.T) {
	lhs := expr.NewConst(16, 1, false)
	rhs := expr.NewConst(16, 2, false)
	op := &expr.Op{Type: expr.OpAdd, Lhs: lhs, Rhs: rhs}

	replacement := expr.NewConst(16, 99, false)
	if !op.UpdateChild(rhs, replacement) {
		t.Fatal("expected UpdateChild to find rhs")
	}

	if op.Rhs != expr.Expression(replacement) {
		t.Fatal("Rhs was not replaced")
	}

	if op.UpdateChild(rhs, replacement) {
		t.Fatal("expected no match for a child no longer present")
	}
}

func TestWalkRewritesTree(t *testing.T) {
	tree := &expr.Op{
		Type: expr.OpAdd,
		Lhs:  expr.NewConst(16, 1, false),
		Rhs:  expr.NewConst(16, 2, false),
	}

	doubled := expr.Walk(tree, func(e expr.Expression) expr.Expression {
		if c, ok := e.(*expr.Const); ok {
			return expr.NewConst(c.Bits, c.Uint64()*2, c.Signed)
		}

		return e
	}).(*expr.Op)

	if doubled.Lhs.(*expr.Const).Uint64() != 2 {
		t.Fatalf("got %d, want 2", doubled.Lhs.(*expr.Const).Uint64())
	}

	if doubled.Rhs.(*expr.Const).Uint64() != 4 {
		t.Fatalf("got %d, want 4", doubled.Rhs.(*expr.Const).Uint64())
	}
}

func TestFilterFindsSymAnywhereInTree(t *testing.T) {
	sym := &expr.Sym{Type: expr.SymUndefined}
	tree := &expr.Bind{Exprs: expr.List{
		expr.NewConst(16, 1, false),
		&expr.Op{Type: expr.OpAdd, Lhs: sym, Rhs: expr.NewConst(16, 1, false)},
	}}

	found := expr.Filter(tree, func(e expr.Expression) bool {
		_, ok := e.(*expr.Sym)
		return ok
	})

	if !found {
		t.Fatal("expected Filter to find the Sym node")
	}

	notFound := expr.Filter(expr.NewConst(16, 1, false), func(e expr.Expression) bool {
		_, ok := e.(*expr.Sym)
		return ok
	})

	if notFound {
		t.Fatal("expected Filter to find nothing in a Sym-free tree")
	}
}

func TestIsLValue(t *testing.T) {
	cpu := fakeCpu{}

	cases := []struct {
		e    expr.Expression
		want bool
	}{
		{&expr.Id{RegID: 0, Info: cpu}, true},
		{&expr.VecId{RegIDs: []uint32{0, 1}, Info: cpu}, true},
		{&expr.Mem{AccessBits: 16, Dereference: true}, true},
		{&expr.Mem{AccessBits: 16, Dereference: false}, false},
		{expr.NewConst(16, 1, false), false},
	}

	for _, c := range cases {
		if got := expr.IsLValue(c.e); got != c.want {
			t.Fatalf("IsLValue(%s) = %v, want %v", c.e, got, c.want)
		}
	}
}

func TestBaseVisitorIsIdentity(t *testing.T) {
	c := expr.NewConst(16, 5, false)

	var v expr.Visitor = expr.BaseVisitor{}
	if c.Visit(v) != expr.Expression(c) {
		t.Fatal("BaseVisitor should return the node unchanged")
	}
}
