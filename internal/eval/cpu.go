// Package eval implements the per-evaluation state an Evaluator runs
// against: a CPU register file (CpuContext) and a paged virtual memory view
// (MemoryContext) overlaying a Document's memory areas, plus the Evaluator
// itself.
package eval

import (
	"fmt"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/errs"
)

// CpuContext is an architecture-parameterized register file plus a mapping
// table for segmented addressing, the state an Execution threads through
// instruction evaluation.
type CpuContext struct {
	regs map[uint32][]byte
	mapping map[addr.Address]addr.Address
}

// NewCpuContext creates an empty register file.
func NewCpuContext() *CpuContext {
	return &CpuContext{regs: make(map[uint32][]byte), mapping: make(map[addr.Address]addr.Address)}
}

// ReadRegister copies nbytes of register id into buf, failing with
// errs.NotFound if the register has never been written and errs.WidthMismatch
// if buf is shorter than nbytes.
func (c *CpuContext) ReadRegister(id uint32, buf []byte, nbytes int) error {
	if len(buf) < nbytes {
		return errs.New("cpu.ReadRegister", errs.WidthMismatch, regAddr(id))
	}

	v, ok := c.regs[id]
	if !ok {
		return errs.New("cpu.ReadRegister", errs.NotFound, regAddr(id))
	}

	copy(buf, v)

	return nil
}

// WriteRegister stores nbytes from buf into register id, optionally sign
// extending the stored value out to the register's previously recorded
// width (or nbytes itself for a first write).
func (c *CpuContext) WriteRegister(id uint32, buf []byte, nbytes int, signExtend bool) error {
	if len(buf) < nbytes {
		return errs.New("cpu.WriteRegister", errs.WidthMismatch, regAddr(id))
	}

	width := nbytes
	if existing, ok := c.regs[id]; ok {
		width = len(existing)
	}

	v := make([]byte, width)
	n := copy(v, buf[:nbytes])

	if signExtend && n > 0 && n < width && buf[n-1]&0x80 != 0 {
		for i := n; i < width; i++ {
			v[i] = 0xff
		}
	}

	c.regs[id] = v

	return nil
}

// HasRegister reports whether id has ever been written.
func (c *CpuContext) HasRegister(id uint32) bool {
	_, ok := c.regs[id]
	return ok
}

// AddMapping records that logical maps to linear for translate lookups.
func (c *CpuContext) AddMapping(logical, linear addr.Address) {
	c.mapping[logical] = linear
}

// Translate resolves a logical address to its linear form, failing with
// errs.Translate if no mapping was registered and the address isn't already
// flat (Base == 0).
func (c *CpuContext) Translate(logical addr.Address) (addr.Address, error) {
	if linear, ok := c.mapping[logical]; ok {
		return linear, nil
	}

	if logical.Base == 0 {
		return logical, nil
	}

	return addr.Address{}, errs.New("cpu.Translate", errs.Translate, logical)
}

// Registers enumerates the ids of every register that has been written.
func (c *CpuContext) Registers() []uint32 {
	out := make([]uint32, 0, len(c.regs))
	for id := range c.regs {
		out = append(out, id)
	}

	return out
}

// Snapshot captures the full register file and mapping table for later
// Restore, used e.g. to roll back a speculative evaluation.
type Snapshot struct {
	regs    map[uint32][]byte
	mapping map[addr.Address]addr.Address
}

func (c *CpuContext) Snapshot() Snapshot {
	regs := make(map[uint32][]byte, len(c.regs))
	for id, v := range c.regs {
		cp := make([]byte, len(v))
		copy(cp, v)
		regs[id] = cp
	}

	mapping := make(map[addr.Address]addr.Address, len(c.mapping))
	for k, v := range c.mapping {
		mapping[k] = v
	}

	return Snapshot{regs: regs, mapping: mapping}
}

func (c *CpuContext) Restore(s Snapshot) {
	c.regs = s.regs
	c.mapping = s.mapping
}

func (c *CpuContext) String() string {
	return fmt.Sprintf("CpuContext{%d registers, %d mappings}", len(c.regs), len(c.mapping))
}

func regAddr(id uint32) addr.Address { return addr.New(uint64(id)) }
