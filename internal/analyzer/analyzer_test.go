package analyzer_test

import (
	"context"
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/analyzer"
	"github.com/medusa-project/medusa/internal/arch/x86demo"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/loader"
)

// Code: mov eax, 1 (5 bytes); jmp +0 (2 bytes, targets the very next
// instruction); ret (1 byte). Exercises sequential disassembly, an
// unconditional jump with a resolved PC-relative target, and the
// terminal-mnemonic fallthrough cutoff.
var sequentialAndJump = []byte{
	0xB8, 0x01, 0x00, 0x00, 0x00, // mov eax, 1
	0xEB, 0x00, // jmp +0
	0xC3, // ret
}

func TestRunDisassemblesSequentialCodeAndFollowsJump(t *testing.T) {
	d := doc.New()

	ld := loader.NewRawLoader(0, x86demo.Tag, 32)
	if _, err := ld.Load(d, sequentialAndJump); err != nil {
		t.Fatal(err)
	}

	a := analyzer.New(d, x86demo.New(), 1)
	if err := a.Run(context.Background(), addr.New(0), 32); err != nil {
		t.Fatal(err)
	}

	for _, want := range []struct {
		offset   uint64
		mnemonic string
	}{
		{0, "MOV"},
		{5, "JMP"},
		{7, "RET"},
	} {
		cell, ok := d.CellAt(addr.New(want.offset))
		if !ok || cell.Type != doc.CellInstruction {
			t.Fatalf("offset %#x: got cell=%+v ok=%v, want an instruction cell", want.offset, cell, ok)
		}

		if cell.Instruction.Mnemonic != want.mnemonic {
			t.Fatalf("offset %#x: got mnemonic %q, want %q", want.offset, cell.Instruction.Mnemonic, want.mnemonic)
		}
	}

	froms := d.XrefsFrom(addr.New(7))
	if len(froms) != 1 || froms[0].Offset != 5 {
		t.Fatalf("got xrefs into offset 7: %v, want one from offset 5 (the jmp)", froms)
	}
}

func TestRunUnsupportedInstructionBecomesUnknownCell(t *testing.T) {
	d := doc.New()

	// 0x90 is NOP: a valid x86 decode, but outside the lowered subset, so it
	// must fall back to an Unknown cell the same way a hard decode failure
	// does.
	ld := loader.NewRawLoader(0, x86demo.Tag, 32)
	if _, err := ld.Load(d, []byte{0x90}); err != nil {
		t.Fatal(err)
	}

	a := analyzer.New(d, x86demo.New(), 1)
	if err := a.Run(context.Background(), addr.New(0), 32); err != nil {
		t.Fatal(err)
	}

	cell, ok := d.CellAt(addr.New(0))
	if !ok {
		t.Fatal("expected an unknown cell to be recorded even on an unlowerable decode")
	}

	if cell.Type != doc.CellUnknown {
		t.Fatalf("got cell type %v, want unknown", cell.Type)
	}
}

func TestRunCallTargetIsDisassembled(t *testing.T) {
	// call +0 (5 bytes, e8 rel32, target = next instruction); ret.
	code := []byte{0xE8, 0x00, 0x00, 0x00, 0x00, 0xC3}

	d := doc.New()

	ld := loader.NewRawLoader(0, x86demo.Tag, 32)
	if _, err := ld.Load(d, code); err != nil {
		t.Fatal(err)
	}

	a := analyzer.New(d, x86demo.New(), 1)
	if err := a.Run(context.Background(), addr.New(0), 32); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.CellAt(addr.New(5)); !ok {
		t.Fatal("expected the call target to be disassembled")
	}
}
