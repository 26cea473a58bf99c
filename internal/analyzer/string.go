package analyzer

import (
	"errors"

	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/errs"
)

// maxStringScan caps how far makeStringItem pre-scans before giving up on
// finding a run worth materializing, independent of doc.MakeString's own
// (unbounded, terminator-driven) scan once it takes over.
const maxStringScan = 4096

func (a *Analyzer) makeStringItem(w makeStringItem) error {
	if a.markVisited(w.Addr, "string") {
		return nil
	}

	area, ok := a.Doc.MemoryAreaAt(w.Addr)
	if !ok {
		return nil
	}

	width := 1
	if w.Enc == doc.EncodingUTF16LE {
		width = 2
	}

	printableRun := 0
	cur := w.Addr

	for i := 0; i < maxStringScan; i++ {
		buf := make([]byte, width)
		if _, err := area.ReadAt(cur, buf); err != nil {
			break
		}

		var ch rune
		if width == 1 {
			ch = rune(buf[0])
		} else {
			ch = rune(uint16(buf[0]) | uint16(buf[1])<<8)
		}

		if ch == 0 {
			break
		}

		if !isPrintable(ch) {
			printableRun = 0
			break
		}

		printableRun++
		cur = cur.MoveBy(int64(width))
	}

	if printableRun < minStringChars {
		return nil
	}

	if err := a.Doc.MakeString(w.Addr, w.Enc, 0); err != nil {
		if errors.Is(err, errs.Conflict) || errors.Is(err, errs.NotFound) {
			return nil
		}

		return err
	}

	return nil
}

func isPrintable(r rune) bool {
	return r >= 0x20 && r < 0x7f
}
