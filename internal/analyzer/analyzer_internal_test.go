package analyzer

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/arch/lc3"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/expr"
	"github.com/medusa-project/medusa/internal/mem"
)

func TestSplitPCConstMatchesEitherOperandOrder(t *testing.T) {
	const offsetID = 9

	pcPlusConst := &expr.Op{Type: expr.OpAdd, Lhs: &expr.Id{RegID: offsetID}, Rhs: expr.NewConst(16, 4, true)}
	if _, ok := splitPCConst(pcPlusConst, offsetID); !ok {
		t.Fatal("expected PC+const to split")
	}

	constPlusPC := &expr.Op{Type: expr.OpAdd, Lhs: expr.NewConst(16, 4, true), Rhs: &expr.Id{RegID: offsetID}}
	if _, ok := splitPCConst(constPlusPC, offsetID); !ok {
		t.Fatal("expected const+PC to split")
	}

	neitherSideIsPC := &expr.Op{Type: expr.OpAdd, Lhs: expr.NewConst(16, 1, true), Rhs: expr.NewConst(16, 2, true)}
	if _, ok := splitPCConst(neitherSideIsPC, offsetID); ok {
		t.Fatal("expected no split when neither operand is the PC register")
	}

	wrongOpType := &expr.Op{Type: expr.OpMul, Lhs: &expr.Id{RegID: offsetID}, Rhs: expr.NewConst(16, 4, true)}
	if _, ok := splitPCConst(wrongOpType, offsetID); ok {
		t.Fatal("expected OpMul not to split as a PC-relative offset")
	}
}

func TestResolveTargetConstIsAbsolute(t *testing.T) {
	pc := addr.New(0x3000)
	fallthroughAddr := addr.New(0x3001)

	got, ok := resolveTarget(expr.NewConst(16, 0x4000, false), pc, fallthroughAddr, 9)
	if !ok || got.Offset != 0x4000 {
		t.Fatalf("got target=%+v ok=%v, want absolute 0x4000", got, ok)
	}
}

func TestResolveTargetPCRelativeAddsToFallthrough(t *testing.T) {
	fallthroughAddr := addr.New(0x3002)

	op := &expr.Op{Type: expr.OpAdd, Lhs: &expr.Id{RegID: 9}, Rhs: expr.NewConst(16, 0x0010, true)}

	got, ok := resolveTarget(op, addr.New(0x3000), fallthroughAddr, 9)
	if !ok || got.Offset != 0x3012 {
		t.Fatalf("got target=%+v ok=%v, want 0x3012", got, ok)
	}
}

func TestResolveTargetIndirectIsUnresolved(t *testing.T) {
	_, ok := resolveTarget(&expr.Id{RegID: 3}, addr.New(0x3000), addr.New(0x3001), 9)
	if ok {
		t.Fatal("expected an indirect (register) target to stay unresolved")
	}
}

func TestIsCallMnemonic(t *testing.T) {
	for _, m := range []string{"JSR", "JSRR", "CALL"} {
		if !isCallMnemonic(m) {
			t.Errorf("expected %q to be a call mnemonic", m)
		}
	}

	if isCallMnemonic("JMP") {
		t.Error("expected JMP not to be a call mnemonic")
	}
}

func TestMakeStringItemMaterializesPrintableRun(t *testing.T) {
	d := doc.New()
	area := mem.New("area0", addr.New(0x1000), 16, mem.Read, 1, 0, []byte("hello\x00"))

	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	a := New(d, lc3.New(), 1)

	if err := a.makeStringItem(makeStringItem{Addr: addr.New(0x1000), Enc: doc.EncodingAscii}); err != nil {
		t.Fatal(err)
	}

	mc, ok := d.MultiCellAt(addr.New(0x1000))
	if !ok || mc.Type != doc.MultiCellString {
		t.Fatalf("got multicell=%+v ok=%v, want a string multi-cell", mc, ok)
	}
}

func TestMakeStringItemSkipsAlreadyVisited(t *testing.T) {
	d := doc.New()
	area := mem.New("area0", addr.New(0x2000), 16, mem.Read, 1, 0, []byte("hello\x00"))

	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	a := New(d, lc3.New(), 1)

	item := makeStringItem{Addr: addr.New(0x2000), Enc: doc.EncodingAscii}
	if err := a.makeStringItem(item); err != nil {
		t.Fatal(err)
	}

	d.RemoveMultiCell(addr.New(0x2000))

	if err := a.makeStringItem(item); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.MultiCellAt(addr.New(0x2000)); ok {
		t.Fatal("expected the second call on an already-visited address to be a no-op")
	}
}
