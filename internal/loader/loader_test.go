package loader_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/loader"
	"github.com/medusa-project/medusa/internal/mem"
)

func TestRawLoaderMapsWholeInputAtBase(t *testing.T) {
	d := doc.New()
	l := loader.NewRawLoader(0x3000, 1, 0)

	data := []byte{0x01, 0x02, 0x03, 0x04}

	entry, err := l.Load(d, data)
	if err != nil {
		t.Fatal(err)
	}

	if !entry.Known || entry.Address != 0x3000 {
		t.Fatalf("got entry=%+v", entry)
	}

	area, ok := d.MemoryAreaAt(addr.New(0x3000))
	if !ok {
		t.Fatal("expected a memory area at the base address")
	}

	if area.Size != uint64(len(data)) {
		t.Fatalf("got size=%d, want %d", area.Size, len(data))
	}

	if area.Perms&mem.Execute == 0 {
		t.Fatal("expected the raw loader to map an executable area")
	}
}

func TestRawLoaderEmptyInput(t *testing.T) {
	d := doc.New()
	l := loader.NewRawLoader(0, 1, 0)

	entry, err := l.Load(d, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !entry.Known || entry.Address != 0 {
		t.Fatalf("got entry=%+v", entry)
	}

	// A zero-length area contains no address, so MemoryAreaAt cannot find
	// it; look for it in the area list instead.
	if areas := d.Areas(); len(areas) != 1 || areas[0].Size != 0 || !areas[0].Start.Equal(addr.New(0)) {
		t.Fatal("expected a (zero-length) memory area to be mapped")
	}
}

func TestLC3ObjLoaderRejectsGarbage(t *testing.T) {
	d := doc.New()
	l := loader.NewLC3ObjLoader(1)

	if _, err := l.Load(d, []byte("not an intel hex record\n")); err == nil {
		t.Fatal("expected an error decoding non-hex-record input")
	}
}

func TestLC3ObjLoaderRejectsEmptyInput(t *testing.T) {
	d := doc.New()
	l := loader.NewLC3ObjLoader(1)

	if _, err := l.Load(d, nil); err == nil {
		t.Fatal("expected an error for input with no records")
	}
}
