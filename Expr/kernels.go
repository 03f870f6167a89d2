package Expr

import (
	"context"
	"fmt"
	"math"
	"sort"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
)

var (
	ErrCantCompareDifferentTypes = func(leftType, rightType arrow.DataType) error {
		return fmt.Errorf("cannot compare different data types: %s and %s", leftType, rightType)
	}
)

type arithKind int

const (
	arithAdd arithKind = iota
	arithSub
	arithMul
	arithDiv
)

func unpackDatum(d compute.Datum) (arrow.Array, error) {
	arr, ok := d.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("datum %v is not of type array", d)
	}
	return arr.MakeArray(), nil
}

// asDatum wraps an operand for the compute layer. Scalars broadcast
// natively inside the kernels.
func asDatum(v any) (compute.Datum, error) {
	if arr, ok := v.(arrow.Array); ok {
		return compute.NewDatum(arr), nil
	}
	if v == nil {
		return nil, operators.Assertion("null operand reached the compute layer")
	}
	return compute.NewDatum(scalar.MakeScalar(v)), nil
}

// nullOperandResult handles an operand that resolved to a null scalar (an
// aggregate over an all-null column, a null literal). Null propagates: every
// output cell is null, sized from the columnar side. The second return is
// false when neither side resolved to a column.
func nullOperandResult(dt arrow.DataType, left, right any) (arrow.Array, bool, error) {
	if left != nil && right != nil {
		return nil, false, nil
	}
	arr, ok := left.(arrow.Array)
	if !ok {
		arr, ok = right.(arrow.Array)
	}
	if !ok {
		return nil, false, nil
	}
	if dt == nil {
		dt = arr.DataType()
	}
	out, err := operators.BuildColumn(dt, make([]any, arr.Len()))
	return out, true, err
}

func arithNative(kind arithKind, left, right any) (arrow.Array, error) {
	if out, handled, err := nullOperandResult(nil, left, right); handled || err != nil {
		return out, err
	}
	l, err := asDatum(left)
	if err != nil {
		return nil, err
	}
	r, err := asDatum(right)
	if err != nil {
		return nil, err
	}
	opt := compute.ArithmeticOptions{}
	var datum compute.Datum
	switch kind {
	case arithAdd:
		datum, err = compute.Add(context.TODO(), opt, l, r)
	case arithSub:
		datum, err = compute.Subtract(context.TODO(), opt, l, r)
	case arithMul:
		datum, err = compute.Multiply(context.TODO(), opt, l, r)
	case arithDiv:
		datum, err = compute.Divide(context.TODO(), opt, l, r)
	}
	if err != nil {
		return nil, err
	}
	return unpackDatum(datum)
}

// compareNative covers the comparison and logical kernels, which all share
// the CallFunction path.
func compareNative(fn string, left, right any) (arrow.Array, error) {
	if out, handled, err := nullOperandResult(arrow.FixedWidthTypes.Boolean, left, right); handled || err != nil {
		return out, err
	}
	l, err := asDatum(left)
	if err != nil {
		return nil, err
	}
	r, err := asDatum(right)
	if err != nil {
		return nil, err
	}
	datum, err := compute.CallFunction(context.TODO(), fn, nil, l, r)
	if err != nil {
		return nil, err
	}
	return unpackDatum(datum)
}

// numAt reads position i of an operand as float64. Arrays index normally,
// scalars repeat. The bool is false for nulls.
func numAt(v any, i int) (float64, bool, error) {
	if arr, ok := v.(arrow.Array); ok {
		return operators.NumericAt(arr, i)
	}
	if v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case int64:
		return float64(t), true, nil
	case uint64:
		return float64(t), true, nil
	case float64:
		return t, true, nil
	case int32:
		return float64(t), true, nil
	case float32:
		return float64(t), true, nil
	}
	return 0, false, operators.InvalidOperation("arithmetic",
		fmt.Sprintf("operand %v of type %T is not numeric", v, v))
}

// pairwiseFloat runs a float64 binary function over two operands with null
// propagation. Backs the kernels the compute layer does not provide.
func pairwiseFloat(left, right any, n int, fn func(a, b float64) (float64, bool)) (arrow.Array, error) {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < n; i++ {
		x, okx, err := numAt(left, i)
		if err != nil {
			return nil, err
		}
		y, oky, err := numAt(right, i)
		if err != nil {
			return nil, err
		}
		if !okx || !oky {
			b.AppendNull()
			continue
		}
		v, valid := fn(x, y)
		if !valid {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return b.NewArray(), nil
}

func floorDivNative(left, right any, n int) (arrow.Array, error) {
	return pairwiseFloat(left, right, n, func(a, b float64) (float64, bool) {
		if b == 0 {
			return 0, false
		}
		return math.Floor(a / b), true
	})
}

func powNative(left, right any, n int) (arrow.Array, error) {
	return pairwiseFloat(left, right, n, func(a, b float64) (float64, bool) {
		return math.Pow(a, b), true
	})
}

// modNative keeps the sign of the divisor, matching python-style modulo
// rather than Go's truncated remainder.
func modNative(left, right any, n int) (arrow.Array, error) {
	return pairwiseFloat(left, right, n, func(a, b float64) (float64, bool) {
		if b == 0 {
			return 0, false
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, true
	})
}

func invertNative(arr arrow.Array) (arrow.Array, error) {
	boolArr, ok := arr.(*array.Boolean)
	if !ok {
		return nil, operators.InvalidOperation("invert",
			fmt.Sprintf("logical not needs a boolean column, got %s", arr.DataType()))
	}
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < boolArr.Len(); i++ {
		if boolArr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(!boolArr.Value(i))
	}
	return b.NewArray(), nil
}

func absNative(arr arrow.Array) (arrow.Array, error) {
	datum, err := compute.AbsoluteValue(context.TODO(), compute.ArithmeticOptions{}, compute.NewDatum(arr))
	if err != nil {
		return nil, err
	}
	return unpackDatum(datum)
}

func roundNative(arr arrow.Array, decimals int) (arrow.Array, error) {
	opts := compute.DefaultRoundOptions
	opts.NDigits = int64(decimals)
	datum, err := compute.Round(context.TODO(), opts, compute.NewDatum(arr))
	if err != nil {
		return nil, err
	}
	return unpackDatum(datum)
}

func castNative(arr arrow.Array, target arrow.DataType) (arrow.Array, error) {
	out, err := compute.CastArray(context.TODO(), arr, compute.SafeCastOptions(target))
	if err != nil {
		return nil, fmt.Errorf("cast error: cannot cast %s to %s: %w",
			arr.DataType(), target, err)
	}
	return out, nil
}

// oneRow freezes a single scalar into a one-row column of the given type.
func oneRow(dt arrow.DataType, v any) (arrow.Array, error) {
	return operators.BuildColumn(dt, []any{v})
}

// collectFloats gathers the non-null cells of a numeric column.
func collectFloats(arr arrow.Array) ([]float64, error) {
	out := make([]float64, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		v, ok, err := operators.NumericAt(arr, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func sumNative(arr arrow.Array) (arrow.Array, error) {
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return oneRow(arrow.PrimitiveTypes.Float64, total)
}

func meanNative(arr arrow.Array) (arrow.Array, error) {
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return oneRow(arrow.PrimitiveTypes.Float64, total/float64(len(vals)))
}

func medianNative(arr arrow.Array) (arrow.Array, error) {
	// type check happens before any data is touched: an approximate or
	// partitioned execution path would never raise on its own
	if !operators.IsNumericType(arr.DataType()) {
		return nil, operators.InvalidOperation("median",
			fmt.Sprintf("column type %s is not numeric", arr.DataType()))
	}
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return oneRow(arrow.PrimitiveTypes.Float64, vals[mid])
	}
	return oneRow(arrow.PrimitiveTypes.Float64, (vals[mid-1]+vals[mid])/2)
}

// quantileNative interpolates linearly between the two nearest order
// statistics, the same estimator medianNative uses at q=0.5.
func quantileNative(arr arrow.Array, q float64) (arrow.Array, error) {
	if q < 0 || q > 1 {
		return nil, operators.InvalidOperation("quantile",
			fmt.Sprintf("q must be between 0 and 1, got %v", q))
	}
	if !operators.IsNumericType(arr.DataType()) {
		return nil, operators.InvalidOperation("quantile",
			fmt.Sprintf("column type %s is not numeric", arr.DataType()))
	}
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	sort.Float64s(vals)
	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return oneRow(arrow.PrimitiveTypes.Float64, vals[lo])
	}
	frac := pos - float64(lo)
	return oneRow(arrow.PrimitiveTypes.Float64, vals[lo]*(1-frac)+vals[hi]*frac)
}

func extremumNative(arr arrow.Array, wantMax bool) (arrow.Array, error) {
	var best any
	for i := 0; i < arr.Len(); i++ {
		v, err := operators.ValueAt(arr, i)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		cmp := operators.CompareValues(v, best)
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = v
		}
	}
	return oneRow(arr.DataType(), best)
}

func momentsNative(arr arrow.Array, ddof int, wantStd bool) (arrow.Array, error) {
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	denom := len(vals) - ddof
	if denom <= 0 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	variance := ss / float64(denom)
	if wantStd {
		return oneRow(arrow.PrimitiveTypes.Float64, math.Sqrt(variance))
	}
	return oneRow(arrow.PrimitiveTypes.Float64, variance)
}

// skewNative computes the Fisher-Pearson coefficient from population
// moments. Degenerate inputs (under three points, zero variance) yield null.
func skewNative(arr arrow.Array) (arrow.Array, error) {
	vals, err := collectFloats(arr)
	if err != nil {
		return nil, err
	}
	n := float64(len(vals))
	if len(vals) < 3 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= n
	var m2, m3 float64
	for _, v := range vals {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return oneRow(arrow.PrimitiveTypes.Float64, nil)
	}
	return oneRow(arrow.PrimitiveTypes.Float64, m3/math.Pow(m2, 1.5))
}

func countNative(arr arrow.Array) (arrow.Array, error) {
	return oneRow(arrow.PrimitiveTypes.Int64, int64(arr.Len()-arr.NullN()))
}

func nullCountNative(arr arrow.Array) (arrow.Array, error) {
	return oneRow(arrow.PrimitiveTypes.Int64, int64(arr.NullN()))
}

// nUniqueNative counts null as one distinct value, same as the grouped
// aggregation primitive.
func nUniqueNative(arr arrow.Array) (arrow.Array, error) {
	seen := make(map[string]struct{})
	for i := 0; i < arr.Len(); i++ {
		seen[operators.EncodeKeyAt(arr, i)] = struct{}{}
	}
	return oneRow(arrow.PrimitiveTypes.Int64, int64(len(seen)))
}

func lenNative(arr arrow.Array) (arrow.Array, error) {
	return oneRow(arrow.PrimitiveTypes.Int64, int64(arr.Len()))
}

// allAnyNative skips nulls; an empty or all-null column is vacuously true
// for all and false for any.
func allAnyNative(arr arrow.Array, wantAll bool) (arrow.Array, error) {
	boolArr, ok := arr.(*array.Boolean)
	if !ok {
		op := "any"
		if wantAll {
			op = "all"
		}
		return nil, operators.InvalidOperation(op,
			fmt.Sprintf("needs a boolean column, got %s", arr.DataType()))
	}
	result := wantAll
	for i := 0; i < boolArr.Len(); i++ {
		if boolArr.IsNull(i) {
			continue
		}
		v := boolArr.Value(i)
		if wantAll && !v {
			result = false
			break
		}
		if !wantAll && v {
			result = true
			break
		}
	}
	return oneRow(arrow.FixedWidthTypes.Boolean, result)
}

// cumKind selects the running statistic for the cumulative scan.
type cumKind int

const (
	cumSum cumKind = iota
	cumCount
	cumMin
	cumMax
	cumProd
)

// cumulativeNative runs a forward scan. Null cells stay null (except for
// cum_count, which reports the running non-null tally at every row).
func cumulativeNative(arr arrow.Array, kind cumKind) (arrow.Array, error) {
	if kind == cumCount {
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		count := int64(0)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				count++
			}
			b.Append(count)
		}
		return b.NewArray(), nil
	}

	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	var acc float64
	started := false
	for i := 0; i < arr.Len(); i++ {
		v, ok, err := operators.NumericAt(arr, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			b.AppendNull()
			continue
		}
		if !started {
			acc = v
			started = true
			b.Append(acc)
			continue
		}
		switch kind {
		case cumSum:
			acc += v
		case cumProd:
			acc *= v
		case cumMin:
			acc = math.Min(acc, v)
		case cumMax:
			acc = math.Max(acc, v)
		}
		b.Append(acc)
	}
	return b.NewArray(), nil
}

// shiftNative moves values by n positions, filling the vacated rows with
// null. Negative n shifts toward the front.
func shiftNative(arr arrow.Array, n int) (arrow.Array, error) {
	length := arr.Len()
	values := make([]any, length)
	for i := 0; i < length; i++ {
		src := i - n
		if src < 0 || src >= length {
			values[i] = nil
			continue
		}
		v, err := operators.ValueAt(arr, src)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return operators.BuildColumn(arr.DataType(), values)
}

func diffNative(arr arrow.Array) (arrow.Array, error) {
	shifted, err := shiftNative(arr, 1)
	if err != nil {
		return nil, err
	}
	defer shifted.Release()
	return arithNative(arithSub, arr, shifted)
}

// clipNative clamps into [lower, upper]; a nil bound is open on that side.
// The output keeps the input type.
func clipNative(arr arrow.Array, lower, upper any) (arrow.Array, error) {
	values := make([]any, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		v, ok, err := operators.NumericAt(arr, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			values[i] = nil
			continue
		}
		out, err := operators.ValueAt(arr, i)
		if err != nil {
			return nil, err
		}
		if lower != nil {
			lo, okLo, err := numAt(lower, i)
			if err != nil {
				return nil, err
			}
			if okLo && v < lo {
				out = lo
				v = lo
			}
		}
		if upper != nil {
			hi, okHi, err := numAt(upper, i)
			if err != nil {
				return nil, err
			}
			if okHi && v > hi {
				out = hi
			}
		}
		values[i] = out
	}
	return operators.BuildColumn(arr.DataType(), values)
}

func fillNullNative(arr arrow.Array, fill any) (arrow.Array, error) {
	values := make([]any, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if !arr.IsNull(i) {
			v, err := operators.ValueAt(arr, i)
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}
		if fillArr, ok := fill.(arrow.Array); ok {
			v, err := operators.ValueAt(fillArr, i)
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}
		values[i] = fill
	}
	return operators.BuildColumn(arr.DataType(), values)
}

func isNullNative(arr arrow.Array) (arrow.Array, error) {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		b.Append(arr.IsNull(i))
	}
	return b.NewArray(), nil
}

func valueEquals(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	af, okA, _ := numAt(a, 0)
	bf, okB, _ := numAt(b, 0)
	return okA && okB && af == bf
}

// isInNative tests membership against literal candidates. Null cells stay
// null rather than comparing equal to anything.
func isInNative(arr arrow.Array, candidates []any) (arrow.Array, error) {
	normalized := make([]any, len(candidates))
	for i, c := range candidates {
		normalized[i] = normalizeLiteral(c)
	}
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		v, err := operators.ValueAt(arr, i)
		if err != nil {
			return nil, err
		}
		found := false
		for _, c := range normalized {
			if valueEquals(v, c) {
				found = true
				break
			}
		}
		b.Append(found)
	}
	return b.NewArray(), nil
}

func isBetweenNative(arr arrow.Array, lower, upper any, closed string) (arrow.Array, error) {
	switch closed {
	case "both", "left", "right", "none":
	default:
		return nil, operators.InvalidOperation("is_between",
			fmt.Sprintf("closed must be both, left, right or none, got %q", closed))
	}
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		v, err := operators.ValueAt(arr, i)
		if err != nil {
			return nil, err
		}
		lo := boundAt(lower, i)
		hi := boundAt(upper, i)
		if lo == nil || hi == nil {
			b.AppendNull()
			continue
		}
		cmpLo := operators.CompareValues(v, lo)
		cmpHi := operators.CompareValues(v, hi)
		okLo := cmpLo > 0 || (cmpLo == 0 && (closed == "both" || closed == "left"))
		okHi := cmpHi < 0 || (cmpHi == 0 && (closed == "both" || closed == "right"))
		b.Append(okLo && okHi)
	}
	return b.NewArray(), nil
}

func boundAt(v any, i int) any {
	if arr, ok := v.(arrow.Array); ok {
		val, err := operators.ValueAt(arr, i)
		if err != nil {
			return nil
		}
		return val
	}
	return normalizeLiteral(v)
}

// isFiniteNative: false for inf and nan, true for every non-null integer,
// null stays null.
func isFiniteNative(arr arrow.Array) (arrow.Array, error) {
	if !operators.IsNumericType(arr.DataType()) {
		return nil, operators.InvalidOperation("is_finite",
			fmt.Sprintf("column type %s is not numeric", arr.DataType()))
	}
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		v, ok, err := operators.NumericAt(arr, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(!math.IsInf(v, 0) && !math.IsNaN(v))
	}
	return b.NewArray(), nil
}

// rollingNative computes a trailing (or centered) window sum/mean. A window
// position with fewer than minPeriods non-null values yields null.
func rollingNative(arr arrow.Array, window, minPeriods int, center bool, wantMean bool) (arrow.Array, error) {
	if window <= 0 {
		return nil, operators.InvalidOperation("rolling", "window size must be positive")
	}
	if minPeriods <= 0 {
		minPeriods = window
	}
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	length := arr.Len()
	for i := 0; i < length; i++ {
		start := i - window + 1
		end := i
		if center {
			start = i - window/2
			end = start + window - 1
		}
		if start < 0 {
			start = 0
		}
		if end >= length {
			end = length - 1
		}
		sum := 0.0
		count := 0
		for j := start; j <= end; j++ {
			v, ok, err := operators.NumericAt(arr, j)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			sum += v
			count++
		}
		if count < minPeriods {
			b.AppendNull()
			continue
		}
		if wantMean {
			b.Append(sum / float64(count))
			continue
		}
		b.Append(sum)
	}
	return b.NewArray(), nil
}
