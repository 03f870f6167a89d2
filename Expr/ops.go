package Expr

import (
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

// Binary and unary operators. Every form is a thin fromCall wrapper; the
// reflected R-forms swap the operand order and alias the result to
// "literal" since a raw left scalar has no source column to take a name
// from.

func arithOp(kind arithKind, swapped bool) nativeOp {
	return func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		if swapped {
			return arithNative(kind, args[0], arr)
		}
		return arithNative(kind, arr, args[0])
	}
}

func compareOp(fn string, swapped bool) nativeOp {
	return func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		if other, ok := args[0].(arrow.Array); ok && !arrow.TypeEqual(arr.DataType(), other.DataType()) {
			return nil, ErrCantCompareDifferentTypes(arr.DataType(), other.DataType())
		}
		if swapped {
			return compareNative(fn, args[0], arr)
		}
		return compareNative(fn, arr, args[0])
	}
}

func (d Deferred) Add(other any) Deferred {
	return d.fromCall("add", false, arithOp(arithAdd, false), other)
}

func (d Deferred) Sub(other any) Deferred {
	return d.fromCall("sub", false, arithOp(arithSub, false), other)
}

func (d Deferred) Mul(other any) Deferred {
	return d.fromCall("mul", false, arithOp(arithMul, false), other)
}

func (d Deferred) TrueDiv(other any) Deferred {
	return d.fromCall("truediv", false, arithOp(arithDiv, false), other)
}

func (d Deferred) FloorDiv(other any) Deferred {
	return d.fromCall("floordiv", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return floorDivNative(arr, args[0], arr.Len())
	}, other)
}

func (d Deferred) Pow(other any) Deferred {
	return d.fromCall("pow", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return powNative(arr, args[0], arr.Len())
	}, other)
}

func (d Deferred) Mod(other any) Deferred {
	return d.fromCall("mod", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return modNative(arr, args[0], arr.Len())
	}, other)
}

func (d Deferred) RAdd(other any) Deferred {
	return d.fromCall("radd", false, arithOp(arithAdd, true), other).Alias("literal")
}

func (d Deferred) RSub(other any) Deferred {
	return d.fromCall("rsub", false, arithOp(arithSub, true), other).Alias("literal")
}

func (d Deferred) RMul(other any) Deferred {
	return d.fromCall("rmul", false, arithOp(arithMul, true), other).Alias("literal")
}

func (d Deferred) RTrueDiv(other any) Deferred {
	return d.fromCall("rtruediv", false, arithOp(arithDiv, true), other).Alias("literal")
}

func (d Deferred) RFloorDiv(other any) Deferred {
	return d.fromCall("rfloordiv", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return floorDivNative(args[0], arr, arr.Len())
	}, other).Alias("literal")
}

func (d Deferred) RPow(other any) Deferred {
	return d.fromCall("rpow", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return powNative(args[0], arr, arr.Len())
	}, other).Alias("literal")
}

func (d Deferred) RMod(other any) Deferred {
	return d.fromCall("rmod", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return modNative(args[0], arr, arr.Len())
	}, other).Alias("literal")
}

func (d Deferred) Eq(other any) Deferred {
	return d.fromCall("eq", false, compareOp("equal", false), other)
}

func (d Deferred) Ne(other any) Deferred {
	return d.fromCall("ne", false, compareOp("not_equal", false), other)
}

func (d Deferred) Lt(other any) Deferred {
	return d.fromCall("lt", false, compareOp("less", false), other)
}

func (d Deferred) Le(other any) Deferred {
	return d.fromCall("le", false, compareOp("less_equal", false), other)
}

func (d Deferred) Gt(other any) Deferred {
	return d.fromCall("gt", false, compareOp("greater", false), other)
}

func (d Deferred) Ge(other any) Deferred {
	return d.fromCall("ge", false, compareOp("greater_equal", false), other)
}

func (d Deferred) And(other any) Deferred {
	return d.fromCall("and", false, compareOp("and", false), other)
}

func (d Deferred) Or(other any) Deferred {
	return d.fromCall("or", false, compareOp("or", false), other)
}

func (d Deferred) RAnd(other any) Deferred {
	return d.fromCall("rand", false, compareOp("and", true), other).Alias("literal")
}

func (d Deferred) ROr(other any) Deferred {
	return d.fromCall("ror", false, compareOp("or", true), other).Alias("literal")
}

// Invert is logical not.
func (d Deferred) Invert() Deferred {
	return d.fromCall("invert", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return invertNative(arr)
	})
}

func (d Deferred) Cast(target arrow.DataType) Deferred {
	return d.fromCall("cast", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return castNative(arr, target)
	})
}
