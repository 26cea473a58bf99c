package text_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/db/text"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/mem"
)

// buildDocument constructs a small Document exercising every section the
// text format round-trips: a memory area, a label, a cross-reference, four
// character cells grouped into a string multi-cell, and a comment.
func buildDocument(t *testing.T) *doc.Document {
	t.Helper()

	d := doc.New()

	area := mem.New("area0", addr.New(0x1000), 8, mem.Read|mem.Execute, 1, 0, []byte("hi\x00\x00junk\x00"))
	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	if err := d.AddLabel(addr.New(0x1000), "greeting", doc.LabelString, true); err != nil {
		t.Fatal(err)
	}

	d.AddCrossRef(addr.New(0x1000), addr.New(0x1004))

	for i := 0; i < 3; i++ {
		cell := &doc.Cell{Type: doc.CellCharacter, LengthBytes: 1, ArchTag: 1}
		if err := d.SetCell(addr.New(uint64(0x1000+i)), cell, true); err != nil {
			t.Fatal(err)
		}
	}

	if err := d.AddMultiCell(addr.New(0x1000), &doc.MultiCell{Type: doc.MultiCellString, SizeByte: 3}); err != nil {
		t.Fatal(err)
	}

	d.SetComment(addr.New(0x1000), "says hello")

	return d
}

func TestSaveLoadRoundTrip(t *testing.T) {
	want := buildDocument(t)

	db := text.New()

	encoded, err := db.Save(want)
	if err != nil {
		t.Fatal(err)
	}

	got := doc.New()
	if err := db.Load(got, encoded); err != nil {
		t.Fatalf("Load: %v\n%s", err, encoded)
	}

	area, ok := got.MemoryAreaAt(addr.New(0x1000))
	if !ok {
		t.Fatal("expected the memory area to survive the round trip")
	}

	if string(area.Bytes()[:2]) != "hi" {
		t.Fatalf("got area bytes %q, want prefix %q", area.Bytes(), "hi")
	}

	label, ok := got.LabelAt(addr.New(0x1000))
	if !ok || label.Name != "greeting" {
		t.Fatalf("got label=%+v ok=%v", label, ok)
	}

	froms := got.XrefsFrom(addr.New(0x1000))
	if len(froms) != 1 || froms[0].Offset != 0x1004 {
		t.Fatalf("got xrefs=%v, want one from 0x1004", froms)
	}

	cell, ok := got.CellAt(addr.New(0x1000))
	if !ok || cell.Type != doc.CellCharacter {
		t.Fatalf("got cell=%+v ok=%v", cell, ok)
	}

	mc, ok := got.MultiCellAt(addr.New(0x1000))
	if !ok || mc.Type != doc.MultiCellString || mc.SizeByte != 3 {
		t.Fatalf("got multicell=%+v ok=%v", mc, ok)
	}

	comment, ok := got.GetComment(addr.New(0x1000))
	if !ok || comment != "says hello" {
		t.Fatalf("got comment=%q ok=%v", comment, ok)
	}
}

// TestSaveEmitsXrefsWithoutLabels guards against the cross-reference
// section only covering addresses that happen to also carry a label: a
// pure data reference with no label must still round-trip.
func TestSaveEmitsXrefsWithoutLabels(t *testing.T) {
	d := doc.New()

	area := mem.New("area0", addr.New(0x2000), 4, mem.Read|mem.Write, 1, 0, nil)
	if err := d.AddMemoryArea(area); err != nil {
		t.Fatal(err)
	}

	d.AddCrossRef(addr.New(0x2000), addr.New(0x2002))

	db := text.New()

	encoded, err := db.Save(d)
	if err != nil {
		t.Fatal(err)
	}

	got := doc.New()
	if err := db.Load(got, encoded); err != nil {
		t.Fatalf("Load: %v\n%s", err, encoded)
	}

	froms := got.XrefsFrom(addr.New(0x2000))
	if len(froms) != 1 || froms[0].Offset != 0x2002 {
		t.Fatalf("got xrefs=%v, want one from 0x2002 despite no label", froms)
	}
}

func TestLoadRejectsWrongHeader(t *testing.T) {
	db := text.New()
	d := doc.New()

	if err := db.Load(d, []byte("not a medusa database\n")); err == nil {
		t.Fatal("expected an error for a missing/incorrect header line")
	}
}
