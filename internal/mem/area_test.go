package mem_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/mem"
)

func TestReadWriteRoundTrip(t *testing.T) {
	area := mem.New("text", addr.New(0x1000), 16, mem.Read|mem.Execute, 1, 0, nil)

	if _, err := area.WriteAt(addr.New(0x1000), []byte("hello")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 5)
	if _, err := area.ReadAt(addr.New(0x1000), buf); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(buf, []byte("hello")) {
		t.Fatalf("got %q", buf)
	}
}

func TestReadTruncated(t *testing.T) {
	area := mem.New("text", addr.New(0x1000), 4, mem.Read, 1, 0, []byte{1, 2, 3, 4})

	buf := make([]byte, 8)

	_, err := area.ReadAt(addr.New(0x1000), buf)
	if err == nil {
		t.Fatal("expected truncated error")
	}

	if !errors.Is(err, errs.Truncated) {
		t.Fatalf("got %v", err)
	}
}

func TestOverlap(t *testing.T) {
	a := mem.New("a", addr.New(0x1000), 0x10, mem.Read, 1, 0, nil)
	b := mem.New("b", addr.New(0x1008), 0x10, mem.Read, 1, 0, nil)
	c := mem.New("c", addr.New(0x2000), 0x10, mem.Read, 1, 0, nil)

	if !a.Overlaps(b) {
		t.Fatal("expected overlap")
	}

	if a.Overlaps(c) {
		t.Fatal("expected no overlap")
	}
}
