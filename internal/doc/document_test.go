package doc_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/mem"
)

func TestEmptyDocument(t *testing.T) {
	d := doc.New()

	area := mem.New("area0", addr.New(0x1000), 16, mem.Read, 1, 0, nil)
	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	if c, ok := d.CellAt(addr.New(0x1000)); ok {
		t.Fatalf("expected no cell, got %v", c)
	}

	if _, ok := d.LabelAt(addr.New(0x1000)); ok {
		t.Fatal("expected no label")
	}

	first, ok := d.FirstAddress()
	if !ok || first.Offset != 0x1000 {
		t.Fatalf("got first=%v ok=%v", first, ok)
	}

	last, ok := d.LastAddress()
	if !ok || last.Offset != 0x100f {
		t.Fatalf("got last=%v ok=%v", last, ok)
	}
}

func TestSimpleCrossReference(t *testing.T) {
	d := doc.New()

	area := mem.New("text", addr.New(0x1000), 0x2000, mem.Read|mem.Execute, 1, 0, nil)
	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	from := addr.New(0x1000)
	to := addr.New(0x2000)

	if err := d.SetCell(from, doc.NewInstructionCell(4, 1, 0, &doc.Instruction{Mnemonic: "jmp"}), false); err != nil {
		t.Fatal(err)
	}

	d.AddCrossRef(to, from)

	froms := d.XrefsFrom(to)
	if len(froms) != 1 || !froms[0].Equal(from) {
		t.Fatalf("got %v", froms)
	}

	got, ok := d.XrefTo(from)
	if !ok || !got.Equal(to) {
		t.Fatalf("got %v ok=%v", got, ok)
	}

	d.RemoveCell(from)

	if froms := d.XrefsFrom(to); len(froms) != 0 {
		t.Fatalf("expected no xrefs after removal, got %v", froms)
	}

	if _, ok := d.XrefTo(from); ok {
		t.Fatal("expected no xref-to after removal")
	}
}

func TestLabelRenameEmitsEventsInOrder(t *testing.T) {
	d := doc.New()

	address := addr.New(0x1000)

	if err := d.AddLabel(address, "start", doc.LabelCode, false); err != nil {
		t.Fatal(err)
	}

	sub := d.Subscribe()

	if err := d.AddLabel(address, "_main", doc.LabelCode, true); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.AddressOfLabel("start"); ok {
		t.Fatal("expected 'start' to be evicted")
	}

	got, ok := d.AddressOfLabel("_main")
	if !ok || !got.Equal(address) {
		t.Fatalf("got %v ok=%v", got, ok)
	}

	var labelEvents []doc.Event

drain:
	for i := 0; i < 8; i++ {
		select {
		case ev := <-sub.Events():
			if ev.Kind == doc.EventLabelUpdated {
				labelEvents = append(labelEvents, ev)
			}
		default:
			break drain
		}
	}

	if len(labelEvents) != 2 {
		t.Fatalf("got %d label events, want 2: %+v", len(labelEvents), labelEvents)
	}

	if !labelEvents[0].LabelRemoved || labelEvents[0].Label.Name != "start" {
		t.Fatalf("first event should remove 'start': %+v", labelEvents[0])
	}

	if labelEvents[1].LabelRemoved || labelEvents[1].Label.Name != "_main" {
		t.Fatalf("second event should add '_main': %+v", labelEvents[1])
	}
}

func TestLabelAddRejectsConflictWithoutForce(t *testing.T) {
	d := doc.New()

	if err := d.AddLabel(addr.New(0x1000), "dup", doc.LabelCode, false); err != nil {
		t.Fatal(err)
	}

	err := d.AddLabel(addr.New(0x2000), "dup", doc.LabelCode, false)
	if err == nil {
		t.Fatal("expected Conflict")
	}
}

func TestMakeStringDetection(t *testing.T) {
	d := doc.New()

	data := append([]byte("hi\x00"), []byte("garbage")...)
	area := mem.New("data", addr.New(0x3000), uint64(len(data)), mem.Read, 1, 0, data)

	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	start := addr.New(0x3000)

	if err := d.MakeString(start, doc.EncodingAscii, 64); err != nil {
		t.Fatal(err)
	}

	mc, ok := d.MultiCellAt(start)
	if !ok || mc.Type != doc.MultiCellString || mc.SizeByte != 3 {
		t.Fatalf("got %+v ok=%v", mc, ok)
	}

	lbl, ok := d.LabelAt(start)
	if !ok || lbl.Name != "str_hi" {
		t.Fatalf("got %+v ok=%v", lbl, ok)
	}

	// invoking again is a no-op
	if err := d.MakeString(start, doc.EncodingAscii, 64); err != nil {
		t.Fatal(err)
	}
}

func TestSetCellConflictWithoutForce(t *testing.T) {
	d := doc.New()

	area := mem.New("text", addr.New(0x1000), 0x10, mem.Read|mem.Execute, 1, 0, nil)
	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	a := addr.New(0x1000)

	if err := d.SetCell(a, doc.NewInstructionCell(4, 1, 0, &doc.Instruction{Mnemonic: "nop"}), false); err != nil {
		t.Fatal(err)
	}

	err := d.SetCell(addr.New(0x1002), doc.NewInstructionCell(2, 1, 0, &doc.Instruction{Mnemonic: "nop"}), false)
	if err == nil {
		t.Fatal("expected Conflict for overlapping cell without force")
	}

	if _, ok := d.CellAt(a); !ok {
		t.Fatal("original cell should be intact after a rejected overlap")
	}
}
