package eval

import (
	"math/big"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/expr"
)

// maxWhileIterations bounds WhileCond evaluation; the source left this
// undefined, so it's fixed here per the accompanying design notes.
const maxWhileIterations = 1 << 20

// PC identifies the pair of registers an architecture uses for the program
// counter, split into a segment/base id and an offset id (the base id may
// equal the offset id for architectures with a flat PC).
type PC struct {
	BaseID   uint32
	OffsetID uint32
}

// Evaluator reduces an Expression tree against a CpuContext and
// MemoryContext, producing either a concrete Const or a symbolic
// expression. It implements expr.Visitor; the embedded BaseVisitor is
// never actually reached because every hook below is overridden, but
// embedding it keeps Evaluator satisfying expr.Visitor if new kinds are
// added without an override.
type Evaluator struct {
	expr.BaseVisitor

	Cpu *CpuContext
	Mem *MemoryContext
	PC  PC
}

// New creates an Evaluator over the given contexts.
func New(cpu *CpuContext, mem *MemoryContext, pc PC) *Evaluator {
	return &Evaluator{Cpu: cpu, Mem: mem, PC: pc}
}

// Evaluate reduces e, returning the result and whether it is symbolic
// (i.e. not a *expr.Const).
func (ev *Evaluator) Evaluate(e expr.Expression) (expr.Expression, bool) {
	result := e.Visit(ev)
	_, isConst := result.(*expr.Const)

	return result, !isConst
}

func isSym(e expr.Expression) bool {
	_, ok := e.(*expr.Sym)
	return ok
}

func sym(typ expr.SymType, label string) *expr.Sym { return &expr.Sym{Type: typ, Label: label} }

// ---- leaves ---------------------------------------------------------------

func (ev *Evaluator) VisitConst(c *expr.Const) expr.Expression { return c }

func (ev *Evaluator) VisitId(id *expr.Id) expr.Expression {
	bits := id.SizeInBits()
	if bits == 0 {
		bits = 32
	}

	buf := make([]byte, (bits+7)/8)
	if err := ev.Cpu.ReadRegister(id.RegID, buf, len(buf)); err != nil {
		return sym(expr.SymUnknown, id.Name())
	}

	return bytesToConst(buf, bits, false)
}

func (ev *Evaluator) VisitVecId(v *expr.VecId) expr.Expression {
	if len(v.RegIDs) == 0 {
		return sym(expr.SymUnknown, "vecid")
	}

	total := new(big.Int)

	for _, id := range v.RegIDs {
		width := 32
		if v.Info != nil {
			width = v.Info.RegisterWidth(id)
		}

		buf := make([]byte, (width+7)/8)
		if err := ev.Cpu.ReadRegister(id, buf, len(buf)); err != nil {
			return sym(expr.SymUnknown, "vecid")
		}

		part := bytesToConst(buf, width, false)
		total.Lsh(total, uint(width))
		total.Or(total, part.Value)
	}

	return expr.NewConstBig(v.SizeInBits(), total, false)
}

func (ev *Evaluator) VisitTrackedId(t *expr.TrackedId) expr.Expression {
	bits := t.SizeInBits()
	if bits == 0 {
		bits = 32
	}

	buf := make([]byte, (bits+7)/8)
	if err := ev.Cpu.ReadRegister(t.RegID, buf, len(buf)); err != nil {
		return sym(expr.SymUnknown, t.String())
	}

	return bytesToConst(buf, bits, false)
}

// ---- memory -----------------------------------------------------------

func (ev *Evaluator) VisitMem(m *expr.Mem) expr.Expression {
	base, baseSym := ev.Evaluate(m.Base)
	offset, offSym := ev.Evaluate(m.Offset)

	if !m.Dereference {
		if !baseSym && !offSym {
			logical := addr.NewLogical(addr.DefaultSpace, base.(*expr.Const).Uint64(), offset.(*expr.Const).Uint64(), 64)
			return expr.NewConst(64, logical.Linear(), false)
		}

		return &expr.Mem{AccessBits: m.AccessBits, Base: base, Offset: offset, Dereference: false}
	}

	if baseSym || offSym {
		return sym(expr.SymUnknown, "mem")
	}

	logical := addr.NewLogical(addr.DefaultSpace, base.(*expr.Const).Uint64(), offset.(*expr.Const).Uint64(), 64)

	linear, err := ev.Cpu.Translate(logical)
	if err != nil {
		return sym(expr.SymUnknown, "mem")
	}

	nbytes := (m.AccessBits + 7) / 8
	buf := make([]byte, nbytes)

	if err := ev.Mem.ReadMemory(linear, buf, nbytes); err != nil {
		return sym(expr.SymUnknown, "mem")
	}

	return bytesToConst(buf, m.AccessBits, false)
}

// ---- arithmetic ---------------------------------------------------------

func (ev *Evaluator) VisitOp(o *expr.Op) expr.Expression {
	lhs, lhsSym := ev.Evaluate(o.Lhs)
	if lhsSym || isSym(lhs) {
		return sym(expr.SymUnknown, "op")
	}

	var rhs expr.Expression = expr.NewConst(o.SizeInBits(), 0, false)

	if o.Rhs != nil {
		var rhsSym bool

		rhs, rhsSym = ev.Evaluate(o.Rhs)
		if rhsSym || isSym(rhs) {
			return sym(expr.SymUnknown, "op")
		}
	}

	bits := o.SizeInBits()
	l := lhs.(*expr.Const)
	r := rhs.(*expr.Const)

	return applyOp(o.Type, bits, l, r)
}

func applyOp(op expr.OpType, bits int, l, r *expr.Const) expr.Expression {
	lv, rv := new(big.Int).Set(l.Value), new(big.Int).Set(r.Value)
	signed := l.Signed

	if signed {
		lv = signedValue(l, bits)
		rv = signedValue(r, bits)
	}

	result := new(big.Int)

	switch op {
	case expr.OpXchg:
		result.Set(rv)
	case expr.OpAnd:
		result.And(l.Value, r.Value)
	case expr.OpOr:
		result.Or(l.Value, r.Value)
	case expr.OpXor:
		result.Xor(l.Value, r.Value)
	case expr.OpLls:
		result.Lsh(l.Value, uint(r.Value.Uint64())&shiftMask(bits))
	case expr.OpLrs:
		result.Rsh(l.Value, uint(r.Value.Uint64())&shiftMask(bits))
	case expr.OpArs:
		shifted := new(big.Int).Rsh(lv, uint(r.Value.Uint64())&shiftMask(bits))
		result.Set(shifted)
	case expr.OpAdd:
		result.Add(lv, rv)
	case expr.OpSub:
		result.Sub(lv, rv)
	case expr.OpMul:
		result.Mul(lv, rv)
	case expr.OpSDiv:
		if rv.Sign() == 0 {
			return sym(expr.SymUndefined, "div0")
		}

		result.Quo(lv, rv)
	case expr.OpUDiv:
		if r.Value.Sign() == 0 {
			return sym(expr.SymUndefined, "div0")
		}

		result.Quo(l.Value, r.Value)
	case expr.OpSext:
		result.Set(lv)
	default:
		return sym(expr.SymUnknown, "op")
	}

	return expr.NewConstBig(bits, result, signed)
}

func shiftMask(bits int) uint {
	if bits <= 0 {
		return 0
	}

	m := uint(1)
	for m < uint(bits) {
		m <<= 1
	}

	return m - 1
}

func signedValue(c *expr.Const, bits int) *big.Int {
	v := new(big.Int).Set(c.Value)

	if bits > 0 && bits < 1024 {
		signBit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if v.Cmp(signBit) >= 0 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			v.Sub(v, full)
		}
	}

	return v
}

// ---- conditions ---------------------------------------------------------

func (ev *Evaluator) VisitCond(c *expr.Cond) expr.Expression {
	ok, isSym := ev.evalCond(c)
	if isSym {
		return sym(expr.SymUnknown, "cond")
	}

	v := uint64(0)
	if ok {
		v = 1
	}

	return expr.NewConst(1, v, false)
}

func (ev *Evaluator) evalCond(c *expr.Cond) (result bool, symbolic bool) {
	ref, refSym := ev.Evaluate(c.Ref)
	test, testSym := ev.Evaluate(c.Test)

	if refSym || testSym {
		return false, true
	}

	r, t := ref.(*expr.Const), test.(*expr.Const)

	switch c.Type {
	case expr.CondEq:
		return r.Value.Cmp(t.Value) == 0, false
	case expr.CondNe:
		return r.Value.Cmp(t.Value) != 0, false
	case expr.CondUgt:
		return r.Value.Cmp(t.Value) > 0, false
	case expr.CondUge:
		return r.Value.Cmp(t.Value) >= 0, false
	case expr.CondUlt:
		return r.Value.Cmp(t.Value) < 0, false
	case expr.CondUle:
		return r.Value.Cmp(t.Value) <= 0, false
	case expr.CondSgt:
		return signedValue(r, r.Bits).Cmp(signedValue(t, t.Bits)) > 0, false
	case expr.CondSge:
		return signedValue(r, r.Bits).Cmp(signedValue(t, t.Bits)) >= 0, false
	case expr.CondSlt:
		return signedValue(r, r.Bits).Cmp(signedValue(t, t.Bits)) < 0, false
	case expr.CondSle:
		return signedValue(r, r.Bits).Cmp(signedValue(t, t.Bits)) <= 0, false
	default:
		return false, true
	}
}

func (ev *Evaluator) VisitTernaryCond(t *expr.TernaryCond) expr.Expression {
	ok, symbolic := ev.evalCond(t.Cond)
	if symbolic {
		return sym(expr.SymUnknown, "ternary")
	}

	if ok {
		return t.True.Visit(ev)
	}

	return t.False.Visit(ev)
}

func (ev *Evaluator) VisitIfElseCond(i *expr.IfElseCond) expr.Expression {
	ok, symbolic := ev.evalCond(i.Cond)
	if symbolic {
		return sym(expr.SymUnknown, "ifelse")
	}

	if ok {
		return i.Then.Visit(ev)
	}

	return i.Else.Visit(ev)
}

func (ev *Evaluator) VisitWhileCond(w *expr.WhileCond) expr.Expression {
	var last expr.Expression = expr.NewConst(0, 0, false)

	for i := 0; i < maxWhileIterations; i++ {
		ok, symbolic := ev.evalCond(w.Cond)
		if symbolic {
			return sym(expr.SymUnknown, "while")
		}

		if !ok {
			return last
		}

		last = w.Body.Visit(ev)
	}

	return sym(expr.SymUndefined, "loop")
}

// ---- assignment ---------------------------------------------------------

func (ev *Evaluator) VisitAssign(a *expr.Assign) expr.Expression {
	src, _ := ev.Evaluate(a.Src)

	switch dst := a.Dst.(type) {
	case *expr.Id:
		ev.writeConst(dst.RegID, dst.SizeInBits(), src)
	case *expr.TrackedId:
		ev.writeConst(dst.RegID, dst.SizeInBits(), src)
	case *expr.VecId:
		ev.writeVecId(dst, src)
	case *expr.Mem:
		ev.writeMem(dst, src)
	}

	return src
}

func (ev *Evaluator) writeConst(regID uint32, bits int, value expr.Expression) {
	c, ok := value.(*expr.Const)
	if !ok {
		return
	}

	if bits == 0 {
		bits = c.Bits
	}

	buf := constToBytes(c, bits)
	_ = ev.Cpu.WriteRegister(regID, buf, len(buf), c.Signed)
}

func (ev *Evaluator) writeVecId(dst *expr.VecId, value expr.Expression) {
	c, ok := value.(*expr.Const)
	if !ok || dst.Info == nil {
		return
	}

	v := new(big.Int).Set(c.Value)

	widths := make([]int, len(dst.RegIDs))
	total := 0

	for i, id := range dst.RegIDs {
		widths[i] = dst.Info.RegisterWidth(id)
		total += widths[i]
	}

	shift := total

	for i, id := range dst.RegIDs {
		shift -= widths[i]

		part := new(big.Int).Rsh(v, uint(shift))
		part.And(part, maskOf(widths[i]))

		buf := constToBytes(expr.NewConstBig(widths[i], part, false), widths[i])
		_ = ev.Cpu.WriteRegister(id, buf, len(buf), false)
	}
}

func (ev *Evaluator) writeMem(dst *expr.Mem, value expr.Expression) {
	if !dst.Dereference {
		return
	}

	base, baseSym := ev.Evaluate(dst.Base)
	offset, offSym := ev.Evaluate(dst.Offset)
	c, valOk := value.(*expr.Const)

	if baseSym || offSym || !valOk {
		return
	}

	logical := addr.NewLogical(addr.DefaultSpace, base.(*expr.Const).Uint64(), offset.(*expr.Const).Uint64(), 64)

	linear, err := ev.Cpu.Translate(logical)
	if err != nil {
		return
	}

	nbytes := (dst.AccessBits + 7) / 8
	buf := constToBytes(c, dst.AccessBits)

	_ = ev.Mem.WriteMemory(linear, buf, nbytes)
}

// ---- sequencing / symbolics -----------------------------------------------

func (ev *Evaluator) VisitBind(b *expr.Bind) expr.Expression {
	var last expr.Expression = expr.NewConst(0, 0, false)

	for _, e := range b.Exprs {
		last = e.Visit(ev)
	}

	return last
}

func (ev *Evaluator) VisitSym(s *expr.Sym) expr.Expression     { return s }
func (ev *Evaluator) VisitSystem(s *expr.System) expr.Expression { return s }

// ---- byte <-> Const helpers ---------------------------------------------

func bytesToConst(buf []byte, bits int, signed bool) *expr.Const {
	v := new(big.Int)

	for i := len(buf) - 1; i >= 0; i-- {
		v.Lsh(v, 8)
		v.Or(v, big.NewInt(int64(buf[i])))
	}

	return expr.NewConstBig(bits, v, signed)
}

func constToBytes(c *expr.Const, bits int) []byte {
	n := (bits + 7) / 8
	buf := make([]byte, n)

	v := new(big.Int).Set(c.Value)
	mask := maskOf(bits)
	v.And(v, mask)

	for i := 0; i < n; i++ {
		byteVal := new(big.Int).And(v, big.NewInt(0xff))
		buf[i] = byte(byteVal.Uint64())
		v.Rsh(v, 8)
	}

	return buf
}

func maskOf(bits int) *big.Int {
	if bits <= 0 {
		return big.NewInt(0)
	}

	m := big.NewInt(1)
	m.Lsh(m, uint(bits))
	m.Sub(m, big.NewInt(1))

	return m
}
