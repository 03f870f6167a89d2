package Expr

import (
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

func (d Deferred) Abs() Deferred {
	return d.fromCall("abs", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return absNative(arr)
	})
}

func (d Deferred) Round(decimals int) Deferred {
	return d.fromCall("round", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return roundNative(arr, decimals)
	})
}

// Diff is the difference against the previous row; the first row is null.
func (d Deferred) Diff() Deferred {
	return d.fromCall("diff", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return diffNative(arr)
	})
}

func (d Deferred) Shift(n int) Deferred {
	return d.fromCall("shift", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return shiftNative(arr, n)
	})
}

// Clip clamps into [lower, upper]. Either bound may be nil for open, a plain
// value, or another expression evaluated against the same table.
func (d Deferred) Clip(lower, upper any) Deferred {
	return d.fromCall("clip", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return clipNative(arr, args[0], args[1])
	}, lower, upper)
}

func (d Deferred) FillNull(value any) Deferred {
	return d.fromCall("fill_null", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return fillNullNative(arr, args[0])
	}, value)
}

func (d Deferred) IsNull() Deferred {
	return d.fromCall("is_null", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return isNullNative(arr)
	})
}

func (d Deferred) IsIn(values ...any) Deferred {
	return d.fromCall("is_in", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return isInNative(arr, values)
	})
}

func (d Deferred) IsBetween(lower, upper any, closed string) Deferred {
	return d.fromCall("is_between", false, func(_ *operators.Table, arr arrow.Array, args []any) (arrow.Array, error) {
		return isBetweenNative(arr, args[0], args[1], closed)
	}, lower, upper)
}

func (d Deferred) IsFinite() Deferred {
	return d.fromCall("is_finite", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return isFiniteNative(arr)
	})
}

// Cumulative scans. A reverse scan is not expressible on this execution
// engine, so reverse=true fails rather than approximating.

func (d Deferred) cumulative(name string, kind cumKind, reverse bool) Deferred {
	if reverse {
		return errExpr(operators.NotSupported(name+" with reverse=true", ""))
	}
	return d.fromCall(name, false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return cumulativeNative(arr, kind)
	})
}

func (d Deferred) CumSum(reverse bool) Deferred {
	return d.cumulative("cum_sum", cumSum, reverse)
}

func (d Deferred) CumCount(reverse bool) Deferred {
	return d.cumulative("cum_count", cumCount, reverse)
}

func (d Deferred) CumMin(reverse bool) Deferred {
	return d.cumulative("cum_min", cumMin, reverse)
}

func (d Deferred) CumMax(reverse bool) Deferred {
	return d.cumulative("cum_max", cumMax, reverse)
}

func (d Deferred) CumProd(reverse bool) Deferred {
	return d.cumulative("cum_prod", cumProd, reverse)
}

func (d Deferred) RollingSum(window, minPeriods int, center bool) Deferred {
	return d.fromCall("rolling_sum", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return rollingNative(arr, window, minPeriods, center, false)
	})
}

func (d Deferred) RollingMean(window, minPeriods int, center bool) Deferred {
	return d.fromCall("rolling_mean", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return rollingNative(arr, window, minPeriods, center, true)
	})
}

// Operations that change a column's row count or order independently of its
// sibling columns would desynchronize the table, so they are rejected here
// and live at the frame level instead.

func (d Deferred) shapeMutating(op, alternative string) Deferred {
	return errExpr(operators.NotSupported(op+" on a single column expression", alternative))
}

func (d Deferred) Sort() Deferred {
	return d.shapeMutating("sort", "Frame.Sort")
}

func (d Deferred) Head(int) Deferred {
	return d.shapeMutating("head", "Frame.Head")
}

func (d Deferred) Tail(int) Deferred {
	return d.shapeMutating("tail", "Frame.Tail")
}

func (d Deferred) DropNulls() Deferred {
	return d.shapeMutating("drop_nulls", "Frame.DropNulls")
}

func (d Deferred) Unique() Deferred {
	return d.shapeMutating("unique", "Frame.Unique")
}

func (d Deferred) GatherEvery(int, int) Deferred {
	return d.shapeMutating("gather_every", "Frame.GatherEvery")
}
