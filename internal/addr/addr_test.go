package addr_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
)

func TestCompareLexicographic(t *testing.T) {
	a := addr.New(0x1000)
	b := addr.New(0x2000)

	if !a.Less(b) {
		t.Fatalf("expected %s < %s", a, b)
	}

	if a.Compare(a) != 0 {
		t.Fatalf("expected %s == %s", a, a)
	}
}

func TestMoveBy(t *testing.T) {
	a := addr.New(0x1000)

	moved := a.MoveBy(4)
	if moved.Offset != 0x1004 {
		t.Fatalf("got %#x, want 0x1004", moved.Offset)
	}

	moved = a.MoveBy(-0x1000)
	if moved.Offset != 0 {
		t.Fatalf("got %#x, want 0", moved.Offset)
	}
}

func TestLogicalLinear(t *testing.T) {
	a := addr.NewLogical(addr.DefaultSpace, 0x1000, 0x0010, 16)

	want := uint64(0x1000)<<16 | 0x0010
	if a.Linear() != want {
		t.Fatalf("got %#x, want %#x", a.Linear(), want)
	}

	moved := a.MoveBy(0x10000) // bump the base by one segment
	if moved.Base != 0x1001 || moved.Offset != 0x0010 {
		t.Fatalf("got base=%#x offset=%#x", moved.Base, moved.Offset)
	}
}
