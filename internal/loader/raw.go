package loader

import (
	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/mem"
)

// RawLoader maps the whole input as one RWX memory area starting at Base,
// the minimal loader needed to exercise the Analyzer against a flat binary
// with no container format.
type RawLoader struct {
	Base    uint64
	ArchTag mem.Tag
	Mode    uint8
	Name    string
}

// NewRawLoader builds a RawLoader mapping at base under the given
// architecture tag.
func NewRawLoader(base uint64, archTag mem.Tag, mode uint8) *RawLoader {
	return &RawLoader{Base: base, ArchTag: archTag, Mode: mode, Name: "raw"}
}

func (l *RawLoader) Load(d *doc.Document, data []byte) (EntryPoint, error) {
	start := addr.New(l.Base)
	area := mem.New(l.Name, start, uint64(len(data)), mem.Read|mem.Write|mem.Execute, l.ArchTag, l.Mode, data)

	if err := d.AddMemoryArea(area); err != nil {
		return EntryPoint{}, err
	}

	return EntryPoint{Address: l.Base, Known: true}, nil
}
