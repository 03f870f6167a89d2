package Expr

import (
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

// Scalar reductions. Each one evaluates to a one-row column carrying the
// receiver's name. When the receiver is a bare column selection the result
// also records the matching grouped-aggregation kind, which lets group-by
// push it down to the vectorized primitive instead of evaluating per group.

func (d Deferred) reduction(name string, op nativeOp) Deferred {
	return d.fromCall(name, true, op)
}

func (d Deferred) Sum() Deferred {
	res := d.reduction("sum", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return sumNative(arr)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggSum, 0)
	}
	return res
}

func (d Deferred) Mean() Deferred {
	res := d.reduction("mean", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return meanNative(arr)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggMean, 0)
	}
	return res
}

// Median validates the column type before touching any data; see
// medianNative.
func (d Deferred) Median() Deferred {
	return d.reduction("median", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return medianNative(arr)
	})
}

// Quantile estimates the q-th quantile with linear interpolation between
// order statistics. q must lie in [0, 1].
func (d Deferred) Quantile(q float64) Deferred {
	return d.reduction("quantile", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return quantileNative(arr, q)
	})
}

func (d Deferred) Min() Deferred {
	res := d.reduction("min", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return extremumNative(arr, false)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggMin, 0)
	}
	return res
}

func (d Deferred) Max() Deferred {
	res := d.reduction("max", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return extremumNative(arr, true)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggMax, 0)
	}
	return res
}

func (d Deferred) Std(ddof int) Deferred {
	res := d.reduction("std", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return momentsNative(arr, ddof, true)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggStd, ddof)
	}
	return res
}

func (d Deferred) Var(ddof int) Deferred {
	res := d.reduction("var", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return momentsNative(arr, ddof, false)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggVar, ddof)
	}
	return res
}

func (d Deferred) Skew() Deferred {
	return d.reduction("skew", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return skewNative(arr)
	})
}

// Count tallies non-null cells.
func (d Deferred) Count() Deferred {
	res := d.reduction("count", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return countNative(arr)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggCount, 0)
	}
	return res
}

func (d Deferred) NullCount() Deferred {
	return d.reduction("null_count", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return nullCountNative(arr)
	})
}

// NUnique counts distinct values; null counts as one distinct value.
func (d Deferred) NUnique() Deferred {
	res := d.reduction("n_unique", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return nUniqueNative(arr)
	})
	if d.plainColumns() {
		res = res.withSimple(operators.AggNUnique, 0)
	}
	return res
}

// Len is the row count, nulls included.
func (d Deferred) Len() Deferred {
	return d.reduction("len", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return lenNative(arr)
	})
}

func (d Deferred) All() Deferred {
	return d.reduction("all", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return allAnyNative(arr, true)
	})
}

func (d Deferred) Any() Deferred {
	return d.reduction("any", func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return allAnyNative(arr, false)
	})
}
