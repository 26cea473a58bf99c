// Package expr implements the Expression IR: a tagged tree of typed nodes
// representing the semantics of a decoded instruction, together with the
// visitor protocol used to clone, filter, evaluate, and track def-use
// chains over it.
//
// The source design used a deep class hierarchy with virtual dispatch (one
// C++ class per node kind, Visit() doing double-dispatch into an
// ExpressionVisitor). Per the redesign notes, this is flattened into a
// single Expression interface implemented by small, concrete node types,
// each with one Visit hook; a Visitor is identity by default (BaseVisitor),
// matching the teacher's pattern of small, value-like types with terse
// String() methods (internal/vm/types.go) rather than deep inheritance.
package expr

import (
	"fmt"
	"math/big"
)

// Kind tags the variant of an Expression node.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBind
	KindCond
	KindTernaryCond
	KindIfElseCond
	KindWhileCond
	KindAssign
	KindOp
	KindConst
	KindId
	KindVecId
	KindTrackedId
	KindMem
	KindSym
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindBind:
		return "Bind"
	case KindCond:
		return "Cond"
	case KindTernaryCond:
		return "TernaryCond"
	case KindIfElseCond:
		return "IfElseCond"
	case KindWhileCond:
		return "WhileCond"
	case KindAssign:
		return "Assign"
	case KindOp:
		return "Op"
	case KindConst:
		return "Const"
	case KindId:
		return "Id"
	case KindVecId:
		return "VecId"
	case KindTrackedId:
		return "TrackedId"
	case KindMem:
		return "Mem"
	case KindSym:
		return "Sym"
	case KindSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// Expression is the common interface implemented by every IR node.
//
// Visit dispatches to the variant-specific hook on v and returns whatever
// that hook returns; a default (BaseVisitor) hook returns the receiver
// unchanged, so a visitor that only cares about a few kinds can embed
// BaseVisitor and override just those.
type Expression interface {
	fmt.Stringer

	Kind() Kind

	// SizeInBits returns the node's width, per the table in spec.md §4.2.
	SizeInBits() int

	// Clone deep-copies the node and its children.
	Clone() Expression

	// SignExtend grows a Const (or other size-bearing node) to newBits in
	// place, returning false if the node doesn't support sign extension.
	SignExtend(newBits int) bool

	// UpdateChild structurally replaces one direct child, matched by
	// identity (==), with a new one. It returns true if a child was
	// replaced.
	UpdateChild(old, new Expression) bool

	// Visit dispatches to the visitor's hook for this node's kind.
	Visit(v Visitor) Expression
}

// List is an ordered sequence of expressions, e.g. an instruction's operand
// or semantic expression list.
type List []Expression

func (l List) Clone() List {
	out := make(List, len(l))
	for i, e := range l {
		out[i] = e.Clone()
	}

	return out
}

// ---- Const ------------------------------------------------------------

// Const is an immediate value. Value is carried as a big.Int so the node can
// represent the wide integer constants (up to 1024 bits) that synthesized
// semantics occasionally need, per the design notes; arithmetic is always
// truncated back to Bits after the operation that produced it.
type Const struct {
	Bits   int
	Value  *big.Int
	Signed bool
}

// NewConst builds a Const, truncating value to the low bits bits.
func NewConst(bits int, value uint64, signed bool) *Const {
	v := new(big.Int).SetUint64(value)
	mask := maskBits(bits)
	v.And(v, mask)

	return &Const{Bits: bits, Value: v, Signed: signed}
}

// NewConstBig builds a Const directly from a big.Int, truncating to bits.
func NewConstBig(bits int, value *big.Int, signed bool) *Const {
	v := new(big.Int).And(value, maskBits(bits))
	return &Const{Bits: bits, Value: v, Signed: signed}
}

func maskBits(bits int) *big.Int {
	if bits <= 0 {
		return big.NewInt(0)
	}

	m := big.NewInt(1)
	m.Lsh(m, uint(bits))
	m.Sub(m, big.NewInt(1))

	return m
}

// Uint64 returns the low 64 bits of the constant's unsigned value.
func (c *Const) Uint64() uint64 { return c.Value.Uint64() }

// Int64 returns the constant reinterpreted as a signed value of its bit
// width, sign-extended into an int64.
func (c *Const) Int64() int64 {
	v := new(big.Int).Set(c.Value)

	if c.Bits > 0 && c.Bits < 64 {
		signBit := new(big.Int).Lsh(big.NewInt(1), uint(c.Bits-1))
		if v.Cmp(signBit) >= 0 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(c.Bits))
			v.Sub(v, full)
		}
	}

	return v.Int64()
}

// IsZero reports whether the constant's value is zero.
func (c *Const) IsZero() bool { return c.Value.Sign() == 0 }

func (c *Const) Kind() Kind        { return KindConst }
func (c *Const) SizeInBits() int   { return c.Bits }
func (c *Const) Clone() Expression { return &Const{Bits: c.Bits, Value: new(big.Int).Set(c.Value), Signed: c.Signed} }

func (c *Const) SignExtend(newBits int) bool {
	if newBits <= c.Bits {
		return false
	}

	if c.Signed {
		neg := c.Int64() < 0
		v := new(big.Int).Set(c.Value)

		if neg {
			full := new(big.Int).Lsh(big.NewInt(1), uint(newBits))
			v.Add(v, full)
			v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(c.Bits)))
		}

		c.Value = new(big.Int).And(v, maskBits(newBits))
	}

	c.Bits = newBits

	return true
}

func (c *Const) UpdateChild(Expression, Expression) bool { return false }
func (c *Const) Visit(v Visitor) Expression                { return v.VisitConst(c) }

func (c *Const) String() string {
	sign := ""
	if c.Signed {
		sign = "s"
	}

	return fmt.Sprintf("%#x:%d%s", c.Value, c.Bits, sign)
}

// ---- Id -----------------------------------------------------------------

// CpuInfo identifies the register file an Id is drawn from, so Id can carry
// a human-readable name without the IR depending on a concrete
// architecture package (avoiding an import cycle with internal/arch).
type CpuInfo interface {
	RegisterName(id uint32) string
	RegisterWidth(id uint32) int
}

// Id is a register identifier expression.
type Id struct {
	RegID uint32
	Info  CpuInfo
}

func (i *Id) Kind() Kind      { return KindId }
func (i *Id) SizeInBits() int {
	if i.Info == nil {
		return 0
	}

	return i.Info.RegisterWidth(i.RegID)
}
func (i *Id) Clone() Expression                    { c := *i; return &c }
func (i *Id) SignExtend(int) bool                  { return false }
func (i *Id) UpdateChild(Expression, Expression) bool { return false }
func (i *Id) Visit(v Visitor) Expression           { return v.VisitId(i) }

func (i *Id) Name() string {
	if i.Info == nil {
		return fmt.Sprintf("r%d", i.RegID)
	}

	return i.Info.RegisterName(i.RegID)
}

func (i *Id) String() string { return i.Name() }

// ---- VecId ----------------------------------------------------------------

// VecId concatenates several registers into one wider value, most
// significant register first.
type VecId struct {
	RegIDs []uint32
	Info   CpuInfo
}

func (v *VecId) Kind() Kind { return KindVecId }

func (vi *VecId) SizeInBits() int {
	total := 0
	for _, id := range vi.RegIDs {
		if vi.Info != nil {
			total += vi.Info.RegisterWidth(id)
		}
	}

	return total
}

func (vi *VecId) Clone() Expression {
	ids := make([]uint32, len(vi.RegIDs))
	copy(ids, vi.RegIDs)

	return &VecId{RegIDs: ids, Info: vi.Info}
}

func (vi *VecId) SignExtend(int) bool                  { return false }
func (vi *VecId) UpdateChild(Expression, Expression) bool { return false }
func (vi *VecId) Visit(v Visitor) Expression           { return v.VisitVecId(vi) }

func (vi *VecId) String() string {
	s := "{"
	for i, id := range vi.RegIDs {
		if i > 0 {
			s += ":"
		}

		if vi.Info != nil {
			s += vi.Info.RegisterName(id)
		} else {
			s += fmt.Sprintf("r%d", id)
		}
	}

	return s + "}"
}

// ---- TrackedId --------------------------------------------------------

// TrackedId is an Id stamped with the address at which it was last defined,
// produced by the Track visitor (internal/track).
type TrackedId struct {
	RegID   uint32
	Info    CpuInfo
	DefAddr fmt.Stringer
}

func (t *TrackedId) Kind() Kind { return KindTrackedId }

func (t *TrackedId) SizeInBits() int {
	if t.Info == nil {
		return 0
	}

	return t.Info.RegisterWidth(t.RegID)
}

func (t *TrackedId) Clone() Expression                    { c := *t; return &c }
func (t *TrackedId) SignExtend(int) bool                  { return false }
func (t *TrackedId) UpdateChild(Expression, Expression) bool { return false }
func (t *TrackedId) Visit(v Visitor) Expression           { return v.VisitTrackedId(t) }

func (t *TrackedId) String() string {
	name := fmt.Sprintf("r%d", t.RegID)
	if t.Info != nil {
		name = t.Info.RegisterName(t.RegID)
	}

	return fmt.Sprintf("%s@%s", name, t.DefAddr)
}

// ---- Mem ----------------------------------------------------------------

// Mem is a memory reference. When Dereference is false the node denotes the
// computed address itself rather than a load from it.
type Mem struct {
	AccessBits  int
	Base        Expression
	Offset      Expression
	Dereference bool
}

func (m *Mem) Kind() Kind      { return KindMem }
func (m *Mem) SizeInBits() int { return m.AccessBits }

func (m *Mem) Clone() Expression {
	return &Mem{
		AccessBits:  m.AccessBits,
		Base:        cloneOrNil(m.Base),
		Offset:      cloneOrNil(m.Offset),
		Dereference: m.Dereference,
	}
}

func (m *Mem) SignExtend(int) bool { return false }

func (m *Mem) UpdateChild(old, new Expression) bool {
	if m.Base == old {
		m.Base = new
		return true
	}

	if m.Offset == old {
		m.Offset = new
		return true
	}

	return false
}

func (m *Mem) Visit(v Visitor) Expression { return v.VisitMem(m) }

func (m *Mem) String() string {
	op := "*"
	if !m.Dereference {
		op = "&"
	}

	return fmt.Sprintf("%s[%s](%s+%s)", op, sizeSuffix(m.AccessBits), m.Base, m.Offset)
}

func sizeSuffix(bits int) string {
	switch bits {
	case 8:
		return "byte"
	case 16:
		return "word"
	case 32:
		return "dword"
	case 64:
		return "qword"
	default:
		return fmt.Sprintf("%db", bits)
	}
}

// ---- Op -------------------------------------------------------------------

// OpType enumerates the arithmetic/logical operations an Op node can carry.
type OpType uint8

const (
	OpUnknown OpType = iota
	OpXchg
	OpAnd
	OpOr
	OpXor
	OpLls // logical left shift
	OpLrs // logical right shift
	OpArs // arithmetic right shift
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSext
)

func (o OpType) String() string {
	names := map[OpType]string{
		OpXchg: "xchg", OpAnd: "and", OpOr: "or", OpXor: "xor",
		OpLls: "lls", OpLrs: "lrs", OpArs: "ars", OpAdd: "add",
		OpSub: "sub", OpMul: "mul", OpSDiv: "sdiv", OpUDiv: "udiv",
		OpSext: "sext",
	}

	if n, ok := names[o]; ok {
		return n
	}

	return "unk"
}

// Op is a binary arithmetic/logical node; unary operations (e.g. Sext)
// encode Rhs as a zero Const of matching width by convention.
type Op struct {
	Type OpType
	Lhs  Expression
	Rhs  Expression
}

func (o *Op) Kind() Kind { return KindOp }

func (o *Op) SizeInBits() int {
	l, r := 0, 0
	if o.Lhs != nil {
		l = o.Lhs.SizeInBits()
	}

	if o.Rhs != nil {
		r = o.Rhs.SizeInBits()
	}

	if l > r {
		return l
	}

	return r
}

func (o *Op) Clone() Expression {
	return &Op{Type: o.Type, Lhs: cloneOrNil(o.Lhs), Rhs: cloneOrNil(o.Rhs)}
}

func (o *Op) SignExtend(int) bool { return false }

func (o *Op) UpdateChild(old, new Expression) bool {
	if o.Lhs == old {
		o.Lhs = new
		return true
	}

	if o.Rhs == old {
		o.Rhs = new
		return true
	}

	return false
}

func (o *Op) Visit(v Visitor) Expression { return v.VisitOp(o) }

func (o *Op) String() string {
	return fmt.Sprintf("(%s %s %s)", o.Type, o.Lhs, o.Rhs)
}

// Opposite returns the complementary operation, mirroring the teacher's
// GetOppositeOperation, used by simplification passes (Add<->Sub, etc).
func (o OpType) Opposite() OpType {
	switch o {
	case OpAdd:
		return OpSub
	case OpSub:
		return OpAdd
	default:
		return o
	}
}

// ---- Assign -----------------------------------------------------------

// Assign writes Src into Dst. Dst must be an l-value: Id, VecId, Mem (with
// Dereference true), or TrackedId.
type Assign struct {
	Dst Expression
	Src Expression
}

func (a *Assign) Kind() Kind      { return KindAssign }
func (a *Assign) SizeInBits() int { return 0 }

func (a *Assign) Clone() Expression {
	return &Assign{Dst: cloneOrNil(a.Dst), Src: cloneOrNil(a.Src)}
}

func (a *Assign) SignExtend(int) bool { return false }

func (a *Assign) UpdateChild(old, new Expression) bool {
	if a.Dst == old {
		a.Dst = new
		return true
	}

	if a.Src == old {
		a.Src = new
		return true
	}

	return false
}

func (a *Assign) Visit(v Visitor) Expression { return v.VisitAssign(a) }

func (a *Assign) String() string { return fmt.Sprintf("%s := %s", a.Dst, a.Src) }

// IsLValue reports whether e is a valid Assign destination.
func IsLValue(e Expression) bool {
	switch n := e.(type) {
	case *Id, *VecId, *TrackedId:
		return true
	case *Mem:
		return n.Dereference
	default:
		return false
	}
}

// ---- Cond ---------------------------------------------------------------

// CondType enumerates comparison predicates.
type CondType uint8

const (
	CondUnknown CondType = iota
	CondEq
	CondNe
	CondUgt
	CondUge
	CondUlt
	CondUle
	CondSgt
	CondSge
	CondSlt
	CondSle
)

func (c CondType) String() string {
	names := [...]string{"unk", "eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle"}
	if int(c) < len(names) {
		return names[c]
	}

	return "unk"
}

// Cond is a predicate comparing Ref against Test.
type Cond struct {
	Type CondType
	Ref  Expression
	Test Expression
}

func (c *Cond) Kind() Kind      { return KindCond }
func (c *Cond) SizeInBits() int { return 1 }

// Clone preserves the condition across clones, resolving the open question
// in spec.md §9 by implementing Clone for all expression kinds, including
// conditions (the "safe choice" the spec calls out).
func (c *Cond) Clone() Expression {
	return &Cond{Type: c.Type, Ref: cloneOrNil(c.Ref), Test: cloneOrNil(c.Test)}
}

func (c *Cond) SignExtend(int) bool { return false }

func (c *Cond) UpdateChild(old, new Expression) bool {
	if c.Ref == old {
		c.Ref = new
		return true
	}

	if c.Test == old {
		c.Test = new
		return true
	}

	return false
}

func (c *Cond) Visit(v Visitor) Expression { return v.VisitCond(c) }

func (c *Cond) String() string { return fmt.Sprintf("(%s %s %s)", c.Ref, c.Type, c.Test) }

// ---- TernaryCond / IfElseCond / WhileCond --------------------------------

// TernaryCond evaluates Cond and selects, then evaluates, one of True/False.
type TernaryCond struct {
	Cond  *Cond
	True  Expression
	False Expression
}

func (t *TernaryCond) Kind() Kind      { return KindTernaryCond }
func (t *TernaryCond) SizeInBits() int { return 0 }

func (t *TernaryCond) Clone() Expression {
	return &TernaryCond{
		Cond:  t.Cond.Clone().(*Cond),
		True:  cloneOrNil(t.True),
		False: cloneOrNil(t.False),
	}
}

func (t *TernaryCond) SignExtend(int) bool { return false }

func (t *TernaryCond) UpdateChild(old, new Expression) bool {
	switch {
	case Expression(t.Cond) == old:
		t.Cond, _ = new.(*Cond)
		return true
	case t.True == old:
		t.True = new
		return true
	case t.False == old:
		t.False = new
		return true
	}

	return false
}

func (t *TernaryCond) Visit(v Visitor) Expression { return v.VisitTernaryCond(t) }

func (t *TernaryCond) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.True, t.False)
}

// IfElseCond executes Then if Cond holds, else Else; unlike TernaryCond it
// is side-effectful (Assign nodes in the chosen branch mutate the contexts).
type IfElseCond struct {
	Cond *Cond
	Then Expression
	Else Expression
}

func (i *IfElseCond) Kind() Kind      { return KindIfElseCond }
func (i *IfElseCond) SizeInBits() int { return 0 }

func (i *IfElseCond) Clone() Expression {
	return &IfElseCond{Cond: i.Cond.Clone().(*Cond), Then: cloneOrNil(i.Then), Else: cloneOrNil(i.Else)}
}

func (i *IfElseCond) SignExtend(int) bool { return false }

func (i *IfElseCond) UpdateChild(old, new Expression) bool {
	switch {
	case Expression(i.Cond) == old:
		i.Cond, _ = new.(*Cond)
		return true
	case i.Then == old:
		i.Then = new
		return true
	case i.Else == old:
		i.Else = new
		return true
	}

	return false
}

func (i *IfElseCond) Visit(v Visitor) Expression { return v.VisitIfElseCond(i) }

func (i *IfElseCond) String() string {
	return fmt.Sprintf("if (%s) { %s } else { %s }", i.Cond, i.Then, i.Else)
}

// WhileCond repeatedly executes Body while Cond holds.
type WhileCond struct {
	Cond *Cond
	Body Expression
}

func (w *WhileCond) Kind() Kind      { return KindWhileCond }
func (w *WhileCond) SizeInBits() int { return 0 }

func (w *WhileCond) Clone() Expression {
	return &WhileCond{Cond: w.Cond.Clone().(*Cond), Body: cloneOrNil(w.Body)}
}

func (w *WhileCond) SignExtend(int) bool { return false }

func (w *WhileCond) UpdateChild(old, new Expression) bool {
	switch {
	case Expression(w.Cond) == old:
		w.Cond, _ = new.(*Cond)
		return true
	case w.Body == old:
		w.Body = new
		return true
	}

	return false
}

func (w *WhileCond) Visit(v Visitor) Expression { return v.VisitWhileCond(w) }

func (w *WhileCond) String() string { return fmt.Sprintf("while (%s) { %s }", w.Cond, w.Body) }

// ---- Bind -----------------------------------------------------------------

// Bind evaluates its expressions left to right; its result is the last
// expression's result.
type Bind struct {
	Exprs List
}

func (b *Bind) Kind() Kind      { return KindBind }
func (b *Bind) SizeInBits() int { return 0 }
func (b *Bind) Clone() Expression {
	return &Bind{Exprs: b.Exprs.Clone()}
}
func (b *Bind) SignExtend(int) bool { return false }

func (b *Bind) UpdateChild(old, new Expression) bool {
	for i, e := range b.Exprs {
		if e == old {
			b.Exprs[i] = new
			return true
		}
	}

	return false
}

func (b *Bind) Visit(v Visitor) Expression { return v.VisitBind(b) }

func (b *Bind) String() string {
	s := "{"

	for i, e := range b.Exprs {
		if i > 0 {
			s += "; "
		}

		s += e.String()
	}

	return s + "}"
}

// ---- Sym ------------------------------------------------------------------

// SymType enumerates the reasons an expression could not be reduced.
type SymType uint8

const (
	SymUnknown SymType = iota
	SymReturnedValue
	SymFromParameter
	SymUndefined
)

func (s SymType) String() string {
	names := [...]string{"unknown", "returned-value", "from-parameter", "undefined"}
	if int(s) < len(names) {
		return names[s]
	}

	return "unknown"
}

// Sym is an unresolved, symbolic value: a register that has no known
// contents, a short memory read, a div-by-zero, or a value synthesized by
// an OS personality's ExecuteSymbol.
type Sym struct {
	Type  SymType
	Label string
}

func (s *Sym) Kind() Kind                       { return KindSym }
func (s *Sym) SizeInBits() int                  { return 0 }
func (s *Sym) Clone() Expression                { c := *s; return &c }

func (s *Sym) SignExtend(newBits int) bool {
	// A symbolic value absorbs extension: it stays symbolic, but the call
	// still "succeeds" in the sense the source's SymbolicExpression::SignExtend did.
	return true
}

func (s *Sym) UpdateChild(Expression, Expression) bool { return false }
func (s *Sym) Visit(v Visitor) Expression              { return v.VisitSym(s) }
func (s *Sym) String() string                          { return fmt.Sprintf("sym<%s:%s>", s.Type, s.Label) }

// ---- System ---------------------------------------------------------------

// System is a host-visible side-effect marker, e.g. a syscall boundary
// inserted by an OS personality's ExecuteSymbol.
type System struct {
	Name string
}

func (s *System) Kind() Kind                       { return KindSystem }
func (s *System) SizeInBits() int                  { return 0 }
func (s *System) Clone() Expression                { c := *s; return &c }
func (s *System) SignExtend(int) bool              { return false }
func (s *System) UpdateChild(Expression, Expression) bool { return false }
func (s *System) Visit(v Visitor) Expression       { return v.VisitSystem(s) }
func (s *System) String() string                   { return fmt.Sprintf("system(%s)", s.Name) }

// ---- helpers ----------------------------------------------------------

func cloneOrNil(e Expression) Expression {
	if e == nil {
		return nil
	}

	return e.Clone()
}
