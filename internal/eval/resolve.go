package eval

import (
	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/expr"
)

// ResolveOperandReference evaluates an instruction operand and, if it names
// a destination address, returns it. Only two evaluated shapes yield a
// reference:
//
//   - the operand reduces straight to a Const: the destination's offset is
//     set directly to that constant (no Mem semantics are applied to it —
//     a bare constant operand is an absolute offset, not something to
//     dereference through Mem.Base/Mem.Offset);
//   - the operand reduces to a Mem node whose Base and Offset both reduced
//     to Const: the destination is built from those two constants.
//
// Any other result (symbolic, or a Mem with a non-const child) reports "no
// reference".
func (ev *Evaluator) ResolveOperandReference(operand expr.Expression) (addr.Address, bool) {
	result, symbolic := ev.Evaluate(operand)
	if symbolic {
		if m, ok := result.(*expr.Mem); ok {
			if baseConst, ok := m.Base.(*expr.Const); ok {
				if offConst, ok := m.Offset.(*expr.Const); ok {
					return addr.NewLogical(addr.DefaultSpace, baseConst.Uint64(), offConst.Uint64(), 64), true
				}
			}
		}

		return addr.Address{}, false
	}

	c := result.(*expr.Const)

	return addr.Address{Offset: c.Uint64(), OffsetBits: 64}, true
}
