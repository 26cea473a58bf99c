package loader

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/encoding"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/mem"
)

// LC3ObjLoader reads the corpus assembler's Intel-Hex-style object format
// (internal/encoding.HexEncoding) and maps each record as its own memory
// area, giving internal/asm's own output a consumer in this pipeline.
type LC3ObjLoader struct {
	ArchTag mem.Tag
}

// NewLC3ObjLoader builds a loader tagging mapped areas with archTag.
func NewLC3ObjLoader(archTag mem.Tag) *LC3ObjLoader {
	return &LC3ObjLoader{ArchTag: archTag}
}

func (l *LC3ObjLoader) Load(d *doc.Document, data []byte) (EntryPoint, error) {
	var hx encoding.HexEncoding
	if err := hx.UnmarshalText(data); err != nil {
		return EntryPoint{}, errs.Wrap("loader.LC3ObjLoader.Load", errs.Decode, addr.New(0), err)
	}

	records := hx.Code()
	if len(records) == 0 {
		return EntryPoint{}, errs.New("loader.LC3ObjLoader.Load", errs.Decode, addr.New(0))
	}

	entry := EntryPoint{Address: uint64(records[0].Orig), Known: true}

	for i, rec := range records {
		start := addr.New(uint64(rec.Orig))

		bytes := make([]byte, len(rec.Code)*2)
		for j, w := range rec.Code {
			bytes[2*j] = byte(w >> 8)
			bytes[2*j+1] = byte(w)
		}

		area := mem.New(fmt.Sprintf("segment%d", i), start, uint64(len(bytes)),
			mem.Read|mem.Write|mem.Execute, l.ArchTag, 0, bytes)

		if err := d.AddMemoryArea(area); err != nil {
			return EntryPoint{}, err
		}
	}

	return entry, nil
}
