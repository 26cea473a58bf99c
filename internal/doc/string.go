package doc

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/errs"
)

// Encoding selects the character width MakeString scans with.
type Encoding uint8

const (
	EncodingAscii  Encoding = iota // 1 byte per character
	EncodingUTF16LE                // 2 bytes per character, little-endian
)

func (e Encoding) charWidth() int {
	if e == EncodingUTF16LE {
		return 2
	}

	return 1
}

// MakeString scans the memory area at address for a terminator, creates a
// run of Character cells covering the characters up to and including the
// terminator, a String multi-cell over that run, and an auto-named
// "str_<chars>" label. Calling it again over an already-materialized string
// is a no-op. Whether a run is worth turning into a string at all (the
// "at least 4 printable characters" heuristic) is the Analyzer's call, not
// this method's — MakeString itself just materializes whatever run it's
// told to.
func (d *Document) MakeString(address addr.Address, enc Encoding, maxLen int) error {
	if _, ok := d.MultiCellAt(address); ok {
		return nil
	}

	area, ok := d.MemoryAreaAt(address)
	if !ok {
		return errs.New("doc.MakeString", errs.NotFound, address)
	}

	width := enc.charWidth()

	var chars []rune

	cur := address

	for i := 0; maxLen <= 0 || i < maxLen; i++ {
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

		if ch != 0 && !printable(ch) {
			break
		}

		chars = append(chars, ch)
		cur = cur.MoveBy(int64(width))

		if ch == 0 {
			break
		}
	}

	if len(chars) == 0 {
		return errs.New("doc.MakeString", errs.Conflict, address)
	}

	walk := address

	for range chars {
		if err := d.SetCell(walk, NewCharacterCell(width, uint8(enc)), false); err != nil {
			return err
		}

		walk = walk.MoveBy(int64(width))
	}

	totalBytes := uint64(len(chars) * width)
	if err := d.AddMultiCell(address, &MultiCell{Type: MultiCellString, SizeByte: totalBytes}); err != nil {
		return err
	}

	printableOnly := chars
	if last := len(chars) - 1; last >= 0 && chars[last] == 0 {
		printableOnly = chars[:last]
	}

	name := fmt.Sprintf("str_%s", shortName(printableOnly))

	return d.AddLabel(address, name, LabelString, false)
}

func printable(ch rune) bool {
	return ch >= 0x20 && ch < 0x7f
}

// shortName derives a label-safe fragment from the first few characters of
// a detected string, lower-cased, stripping anything non-alphanumeric.
func shortName(chars []rune) string {
	n := len(chars)
	if n > 8 {
		n = 8
	}

	out := make([]rune, 0, n)

	for _, c := range chars[:n] {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}

	if len(out) == 0 {
		return "s"
	}

	return string(out)
}
