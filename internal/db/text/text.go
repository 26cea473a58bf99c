// Package text implements db.Database as the plain-text on-disk format
// from spec.md §6: a header line, then `## MemoryArea` / `## Label` /
// `## CrossReference` / `## MultiCell` / `## Cell` / `## Comment` sections.
//
// Parsing follows the teacher's line-oriented, bufio.Scanner-based approach
// (internal/asm/parser.go's lexing style, internal/encoding/hex.go's
// line-per-record shape) rather than a general-purpose serialization
// library, since the wire format is fixed by the spec down to the literal
// header string and field separators.
package text

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/mem"
)

const header = "# Medusa Text Database"

// DB implements db.Database over the plain-text format.
type DB struct{}

// New creates a text-format Database.
func New() *DB { return &DB{} }

func (*DB) Save(d *doc.Document) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, header)

	fmt.Fprintln(&buf, "## MemoryArea")
	for _, area := range d.Areas() {
		fmt.Fprintf(&buf, "%d:%d:%d:%d:%d:%d:%d:%d:%s\n",
			area.Start.Space, area.Start.Base, area.Start.Offset, area.Start.OffsetBits,
			area.Size, area.Perms, area.ArchTag, area.DefaultMode, area.Name)
		fmt.Fprintf(&buf, "DATA %s\n", hex.EncodeToString(area.Bytes()))
	}

	fmt.Fprintln(&buf, "## Label")

	var labelAddrs []addr.Address

	d.ForEachLabel(func(a addr.Address, _ doc.Label) {
		labelAddrs = append(labelAddrs, a)
	})

	sort.Slice(labelAddrs, func(i, j int) bool { return labelAddrs[i].Less(labelAddrs[j]) })

	for _, a := range labelAddrs {
		l, _ := d.LabelAt(a)
		fmt.Fprintf(&buf, "%s %s\n", addrKey(a), l.Name)
	}

	fmt.Fprintln(&buf, "## CrossReference")

	targets := d.XrefTargets()
	sort.Slice(targets, func(i, j int) bool { return targets[i].Less(targets[j]) })

	for _, to := range targets {
		froms := d.XrefsFrom(to)
		if len(froms) == 0 {
			continue
		}

		sort.Slice(froms, func(i, j int) bool { return froms[i].Less(froms[j]) })

		line := addrKey(to)
		for _, f := range froms {
			line += " ←" + addrKey(f)
		}

		fmt.Fprintln(&buf, line)
	}

	fmt.Fprintln(&buf, "## MultiCell")

	var mcAddrs []addr.Address

	d.ForEachMultiCell(func(a addr.Address, _ *doc.MultiCell) { mcAddrs = append(mcAddrs, a) })
	sort.Slice(mcAddrs, func(i, j int) bool { return mcAddrs[i].Less(mcAddrs[j]) })

	for _, a := range mcAddrs {
		mc, _ := d.MultiCellAt(a)
		fmt.Fprintf(&buf, "%s:%d:%d\n", addrKey(a), mc.Type, mc.SizeByte)
	}

	fmt.Fprintln(&buf, "## Cell")

	d.ForEachCell(func(a addr.Address, c *doc.Cell) {
		fmt.Fprintf(&buf, "%s:%d:%d:%d:%d:%d:%d\n",
			addrKey(a), c.Type, c.Subtype, c.LengthBytes, c.FormatStyle, c.ArchTag, c.Mode)
	})

	fmt.Fprintln(&buf, "## Comment")

	var commentAddrs []addr.Address

	d.ForEachComment(func(a addr.Address, _ string) { commentAddrs = append(commentAddrs, a) })
	sort.Slice(commentAddrs, func(i, j int) bool { return commentAddrs[i].Less(commentAddrs[j]) })

	for _, a := range commentAddrs {
		text, _ := d.GetComment(a)
		fmt.Fprintf(&buf, "%s:%s\n", addrKey(a), base64.StdEncoding.EncodeToString([]byte(text)))
	}

	return buf.Bytes(), nil
}

func addrKey(a addr.Address) string {
	return fmt.Sprintf("%d:%d:%d:%d", a.Space, a.Base, a.Offset, a.OffsetBits)
}

func parseAddrKey(s string) (addr.Address, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return addr.Address{}, fmt.Errorf("text: malformed address %q", s)
	}

	space, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return addr.Address{}, err
	}

	base, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return addr.Address{}, err
	}

	offset, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return addr.Address{}, err
	}

	bits, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return addr.Address{}, err
	}

	return addr.Address{Space: addr.Space(space), Base: base, Offset: offset, OffsetBits: uint8(bits)}, nil
}

func (*DB) Load(d *doc.Document, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return errs.New("text.Load", errs.Decode, addr.New(0))
	}

	if scanner.Text() != header {
		return errs.New("text.Load", errs.Decode, addr.New(0))
	}

	section := ""

	var pendingArea *mem.Area
	var pendingMultiCellLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "## "):
			section = strings.TrimPrefix(line, "## ")
			continue
		}

		switch section {
		case "MemoryArea":
			if strings.HasPrefix(line, "DATA ") {
				if pendingArea == nil {
					return errs.New("text.Load", errs.Decode, addr.New(0))
				}

				raw, err := hex.DecodeString(strings.TrimPrefix(line, "DATA "))
				if err != nil {
					return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
				}

				copy(pendingArea.Bytes(), raw)

				if err := d.AddMemoryArea(pendingArea); err != nil {
					return err
				}

				pendingArea = nil

				continue
			}

			area, err := parseAreaHeader(line)
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			pendingArea = area

		case "Label":
			idx := strings.IndexByte(line, ' ')
			if idx < 0 {
				return errs.New("text.Load", errs.Decode, addr.New(0))
			}

			a, err := parseAddrKey(line[:idx])
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			name := line[idx+1:]
			if err := d.AddLabel(a, name, doc.LabelData, true); err != nil {
				return err
			}

		case "CrossReference":
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			to, err := parseAddrKey(fields[0])
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			for _, f := range fields[1:] {
				f = strings.TrimPrefix(f, "←")

				from, err := parseAddrKey(f)
				if err != nil {
					return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
				}

				d.AddCrossRef(to, from)
			}

		case "MultiCell":
			// Deferred: AddMultiCell requires the cells it covers to
			// already exist, but the Cell section follows MultiCell in
			// the file. Buffered lines are applied after the scan.
			pendingMultiCellLines = append(pendingMultiCellLines, line)

		case "Cell":
			a, c, err := parseCellLine(line)
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			if err := d.SetCell(a, c, true); err != nil {
				return err
			}

		case "Comment":
			idx := strings.LastIndexByte(line, ':')
			if idx < 0 {
				return errs.New("text.Load", errs.Decode, addr.New(0))
			}

			a, err := parseAddrKey(line[:idx])
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			text, err := base64.StdEncoding.DecodeString(line[idx+1:])
			if err != nil {
				return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
			}

			d.SetComment(a, string(text))
		}
	}

	if err := scanner.Err(); err != nil {
		return errs.Wrap("text.Load", errs.IO, addr.New(0), err)
	}

	for _, line := range pendingMultiCellLines {
		a, mc, err := parseMultiCellLine(line)
		if err != nil {
			return errs.Wrap("text.Load", errs.Decode, addr.New(0), err)
		}

		if err := d.AddMultiCell(a, mc); err != nil {
			return err
		}
	}

	return nil
}

// parseMultiCellLine parses an `<addr>:<kind>:<size>` MultiCell record.
func parseMultiCellLine(line string) (addr.Address, *doc.MultiCell, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 6 {
		return addr.Address{}, nil, fmt.Errorf("text: malformed multicell %q", line)
	}

	fields = append([]string{strings.Join(fields[:4], ":")}, fields[4:]...)

	a, err := parseAddrKey(fields[0])
	if err != nil {
		return addr.Address{}, nil, err
	}

	kind, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return addr.Address{}, nil, err
	}

	size, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return addr.Address{}, nil, err
	}

	return a, &doc.MultiCell{Type: doc.MultiCellType(kind), SizeByte: size}, nil
}

// parseCellLine parses an `<addr>:<kind>:<subtype>:<length>:<fmt>:<arch_tag>:<mode>`
// Cell record. Instruction cells persist their structural fields only; the
// decoded mnemonic/operand/semantic IR is not re-serialized, since it can
// always be recovered by re-disassembling the preserved memory-area bytes
// at that address under the same architecture tag and mode.
func parseCellLine(line string) (addr.Address, *doc.Cell, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 10 {
		return addr.Address{}, nil, fmt.Errorf("text: malformed cell %q", line)
	}

	fields = append([]string{strings.Join(fields[:4], ":")}, fields[4:]...)

	a, err := parseAddrKey(fields[0])
	if err != nil {
		return addr.Address{}, nil, err
	}

	kind, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return addr.Address{}, nil, err
	}

	subtype, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return addr.Address{}, nil, err
	}

	length, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return addr.Address{}, nil, err
	}

	formatStyle, err := strconv.ParseUint(fields[4], 10, 8)
	if err != nil {
		return addr.Address{}, nil, err
	}

	archTag, err := strconv.ParseUint(fields[5], 10, 32)
	if err != nil {
		return addr.Address{}, nil, err
	}

	mode, err := strconv.ParseUint(fields[6], 10, 8)
	if err != nil {
		return addr.Address{}, nil, err
	}

	return a, &doc.Cell{
		Type:        doc.CellType(kind),
		Subtype:     uint8(subtype),
		LengthBytes: int(length),
		FormatStyle: uint8(formatStyle),
		ArchTag:     mem.Tag(archTag),
		Mode:        uint8(mode),
	}, nil
}

func parseAreaHeader(line string) (*mem.Area, error) {
	fields := strings.SplitN(line, ":", 9)
	if len(fields) != 9 {
		return nil, fmt.Errorf("text: malformed memory area header %q", line)
	}

	space, _ := strconv.ParseUint(fields[0], 10, 32)
	base, _ := strconv.ParseUint(fields[1], 10, 64)
	offset, _ := strconv.ParseUint(fields[2], 10, 64)
	bits, _ := strconv.ParseUint(fields[3], 10, 8)
	size, _ := strconv.ParseUint(fields[4], 10, 64)
	perms, _ := strconv.ParseUint(fields[5], 10, 8)
	archTag, _ := strconv.ParseUint(fields[6], 10, 32)
	mode, _ := strconv.ParseUint(fields[7], 10, 8)
	name := fields[8]

	start := addr.Address{Space: addr.Space(space), Base: base, Offset: offset, OffsetBits: uint8(bits)}

	return mem.New(name, start, size, mem.Permissions(perms), mem.Tag(archTag), uint8(mode), nil), nil
}
