package eval_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/eval"
	"github.com/medusa-project/medusa/internal/expr"
)

func TestEvalConcreteAdd(t *testing.T) {
	ev := eval.New(eval.NewCpuContext(), eval.NewMemoryContext(), eval.PC{})

	op := &expr.Op{Type: expr.OpAdd, Lhs: expr.NewConst(32, 5, false), Rhs: expr.NewConst(32, 7, false)}

	result, symbolic := ev.Evaluate(op)
	if symbolic {
		t.Fatal("expected a concrete result")
	}

	c := result.(*expr.Const)
	if c.Uint64() != 12 {
		t.Fatalf("got %d, want 12", c.Uint64())
	}
}

func TestEvalSignedDivision(t *testing.T) {
	ev := eval.New(eval.NewCpuContext(), eval.NewMemoryContext(), eval.PC{})

	neg6 := expr.NewConst(32, 0xfffffffa, true) // -6 as a 32-bit two's-complement value
	three := expr.NewConst(32, 3, true)

	op := &expr.Op{Type: expr.OpSDiv, Lhs: neg6, Rhs: three}

	result, symbolic := ev.Evaluate(op)
	if symbolic {
		t.Fatal("expected a concrete result")
	}

	c := result.(*expr.Const)
	if c.Int64() != -2 {
		t.Fatalf("got %d, want -2", c.Int64())
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ev := eval.New(eval.NewCpuContext(), eval.NewMemoryContext(), eval.PC{})

	op := &expr.Op{Type: expr.OpUDiv, Lhs: expr.NewConst(32, 5, false), Rhs: expr.NewConst(32, 0, false)}

	result, symbolic := ev.Evaluate(op)
	if !symbolic {
		t.Fatal("expected a symbolic result")
	}

	s, ok := result.(*expr.Sym)
	if !ok || s.Type != expr.SymUndefined || s.Label != "div0" {
		t.Fatalf("got %v", result)
	}
}

type fakeCpu struct{}

func (fakeCpu) RegisterName(id uint32) string { return "r0" }
func (fakeCpu) RegisterWidth(uint32) int      { return 32 }

func TestEvalSymbolicRegisterPoisons(t *testing.T) {
	ev := eval.New(eval.NewCpuContext(), eval.NewMemoryContext(), eval.PC{})

	r0 := &expr.Id{RegID: 0, Info: fakeCpu{}}
	mem := &expr.Mem{AccessBits: 32, Base: expr.NewConst(32, 0, false), Offset: r0, Dereference: true}

	result, symbolic := ev.Evaluate(mem)
	if !symbolic {
		t.Fatal("expected symbolic result for unset register")
	}

	sym, ok := result.(*expr.Sym)
	if !ok {
		t.Fatalf("got %T", result)
	}

	op := &expr.Op{Type: expr.OpAdd, Lhs: sym, Rhs: expr.NewConst(32, 4, false)}

	result2, symbolic2 := ev.Evaluate(op)
	if !symbolic2 {
		t.Fatal("expected the poisoned operation to stay symbolic")
	}

	if _, ok := result2.(*expr.Sym); !ok {
		t.Fatalf("got %T", result2)
	}
}

func TestEvalAssignWritesRegister(t *testing.T) {
	cpu := eval.NewCpuContext()
	ev := eval.New(cpu, eval.NewMemoryContext(), eval.PC{})

	r0 := &expr.Id{RegID: 0, Info: fakeCpu{}}
	assign := &expr.Assign{Dst: r0, Src: expr.NewConst(32, 42, false)}

	ev.Evaluate(assign)

	result, symbolic := ev.Evaluate(r0)
	if symbolic {
		t.Fatal("expected register read to be concrete after assign")
	}

	if result.(*expr.Const).Uint64() != 42 {
		t.Fatalf("got %d, want 42", result.(*expr.Const).Uint64())
	}
}

func TestWhileCondHitsIterationCap(t *testing.T) {
	cpu := eval.NewCpuContext()
	ev := eval.New(cpu, eval.NewMemoryContext(), eval.PC{})

	alwaysTrue := &expr.Cond{Type: expr.CondEq, Ref: expr.NewConst(1, 1, false), Test: expr.NewConst(1, 1, false)}
	loop := &expr.WhileCond{Cond: alwaysTrue, Body: expr.NewConst(32, 0, false)}

	result, symbolic := ev.Evaluate(loop)
	if !symbolic {
		t.Fatal("expected the loop to terminate symbolically")
	}

	s, ok := result.(*expr.Sym)
	if !ok || s.Type != expr.SymUndefined || s.Label != "loop" {
		t.Fatalf("got %v", result)
	}
}

func TestResolveOperandReferenceConstBranch(t *testing.T) {
	ev := eval.New(eval.NewCpuContext(), eval.NewMemoryContext(), eval.PC{})

	a, ok := ev.ResolveOperandReference(expr.NewConst(64, 0x4000, false))
	if !ok {
		t.Fatal("expected a reference")
	}

	if a.Offset != 0x4000 {
		t.Fatalf("got %#x, want 0x4000", a.Offset)
	}
}
