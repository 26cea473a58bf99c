// Package loader declares the contract for mapping an input binary into a
// fresh Document's memory areas, plus two minimal, grounded instances.
//
// A Loader never decodes instructions; it only establishes the address
// space an Architecture will later disassemble, matching spec.md Non-goal
// (a): file-format parsing beyond what's needed to exercise the pipeline.
package loader

import (
	"github.com/medusa-project/medusa/internal/doc"
)

// EntryPoint is the address execution would begin at, when known.
type EntryPoint struct {
	Address uint64
	Known   bool
}

// Loader maps raw input bytes into d's memory areas and reports where
// execution should begin, if the format says.
type Loader interface {
	Load(d *doc.Document, data []byte) (EntryPoint, error)
}
