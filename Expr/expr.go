package Expr

import (
	"fmt"
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

/*
Deferred is a column expression that has not been evaluated yet. It closes
over everything needed to produce its output columns from a table handed in
later, plus the name bookkeeping that lets renaming combinators and the
group-by result assembly know which output column maps to which input column.

	col("a").Add(1).Alias("b")   reads a, writes b
	Nth(0).Sum()                 anonymous, no name can be derived

Name tracking distinguishes "tracked but empty" (a literal reads nothing)
from "untracked" (positional selection cannot be named), so the slices carry
an explicit bool tag instead of overloading nil.

Invariant: rootTracked and outputTracked are always equal. A combinator that
loses provenance clears both. fromCall asserts this and fails the whole
expression with ErrAssertion when it breaks.

A Deferred is immutable once built; every method returns a new value, so
expressions can be shared and evaluated against independent tables without
synchronization.
*/
type Deferred struct {
	call func(t *operators.Table) ([]operators.Column, error)

	rootNames   []string
	rootTracked bool

	outputNames   []string
	outputTracked bool

	returnsScalar bool
	depth         int
	opName        string

	// non-nil when the expression is exactly one native reduction over
	// plainly selected columns, which the grouped-aggregation engine can
	// push to its vectorized primitive
	simple *simpleAgg
}

type simpleAgg struct {
	kind operators.AggKind
	ddof int
}

// nativeOp is one backend operation: one evaluated column plus resolved
// extra arguments in, one column out. Arguments are arrow.Array for columnar
// operands and plain Go values for scalars.
type nativeOp func(t *operators.Table, arr arrow.Array, args []any) (arrow.Array, error)

// Col selects columns by name. Evaluation fails with ErrColumnNotFound
// listing every missing name and the full available set.
func Col(names ...string) Deferred {
	call := func(t *operators.Table) ([]operators.Column, error) {
		var missing []string
		cols := make([]operators.Column, 0, len(names))
		for _, name := range names {
			arr, err := t.ColumnByName(name)
			if err != nil {
				missing = append(missing, name)
				continue
			}
			cols = append(cols, operators.Column{Name: name, Arr: arr})
		}
		if len(missing) > 0 {
			return nil, operators.ColumnNotFound(missing, t.ColumnNames())
		}
		return cols, nil
	}
	return Deferred{
		call:          call,
		rootNames:     names,
		rootTracked:   true,
		outputNames:   names,
		outputTracked: true,
		depth:         0,
		opName:        "col",
	}
}

// Nth selects columns by position. Positional selection cannot be named
// generically, so the result is anonymous: name-dependent operations
// (renaming, group-by aggregation) will reject it.
func Nth(indices ...int) Deferred {
	call := func(t *operators.Table) ([]operators.Column, error) {
		cols := make([]operators.Column, 0, len(indices))
		for _, idx := range indices {
			arr, err := t.ColumnByIndex(idx)
			if err != nil {
				return nil, err
			}
			cols = append(cols, operators.Column{Name: t.Schema.Field(idx).Name, Arr: arr})
		}
		return cols, nil
	}
	return Deferred{
		call:   call,
		depth:  0,
		opName: "nth",
	}
}

// Lit wraps a raw value as a one-row expression named "literal". It reads no
// input columns, so its root names are tracked and empty.
func Lit(value any) Deferred {
	v := normalizeLiteral(value)
	call := func(t *operators.Table) ([]operators.Column, error) {
		dt, err := literalType(v)
		if err != nil {
			return nil, err
		}
		arr, err := operators.BuildColumn(dt, []any{v})
		if err != nil {
			return nil, err
		}
		return []operators.Column{{Name: "literal", Arr: arr}}, nil
	}
	return Deferred{
		call:          call,
		rootNames:     []string{},
		rootTracked:   true,
		outputNames:   []string{"literal"},
		outputTracked: true,
		returnsScalar: true,
		depth:         0,
		opName:        "lit",
	}
}

// errExpr defers a construction-time failure until evaluation so the fluent
// chain stays usable.
func errExpr(err error) Deferred {
	return Deferred{
		call: func(*operators.Table) ([]operators.Column, error) {
			return nil, err
		},
		opName: "error",
	}
}

/*
fromCall is the composition step every operation goes through:

 1. evaluate the receiver to get its output columns,
 2. resolve each extra argument against the same table - a Deferred argument
    is evaluated first (scalar-returning ones are unboxed to their single
    value), plain values pass through,
 3. apply the native operation to each receiver column with the resolved
    arguments,
 4. rename each result back to the receiver column's name.

Scalar-returning native ops produce their result as a one-row column, so
step 4 needs no special casing.

Root names become the union of the receiver's and every Deferred argument's
root names in first-appearance order. If the receiver or any argument is
anonymous the whole result is anonymous: both name fields clear together.
*/
func (d Deferred) fromCall(name string, returnsScalar bool, op nativeOp, args ...any) Deferred {
	roots, rootsTracked := unionRoots(d, args)
	outNames, outTracked := d.outputNames, d.outputTracked
	if !rootsTracked {
		outNames, outTracked = nil, false
	}
	if rootsTracked != outTracked {
		return errExpr(operators.Assertion(
			"name provenance diverged: root names and output names must be tracked or untracked together"))
	}

	depth := d.depth
	argsAllScalar := true
	for _, a := range args {
		e, ok := a.(Deferred)
		if !ok {
			continue
		}
		if e.depth > depth {
			depth = e.depth
		}
		if !e.returnsScalar {
			argsAllScalar = false
		}
	}
	// an elementwise op over scalar operands is still a scalar
	scalar := returnsScalar || (d.returnsScalar && argsAllScalar)

	call := func(t *operators.Table) ([]operators.Column, error) {
		received, err := d.call(t)
		if err != nil {
			return nil, err
		}
		resolved := make([]any, len(args))
		for i, a := range args {
			e, ok := a.(Deferred)
			if !ok {
				resolved[i] = normalizeLiteral(a)
				continue
			}
			cols, err := e.call(t)
			if err != nil {
				return nil, err
			}
			if len(cols) != 1 {
				return nil, operators.InvalidOperation(name,
					fmt.Sprintf("argument expression produced %d columns, expected 1", len(cols)))
			}
			if e.returnsScalar {
				v, err := operators.ValueAt(cols[0].Arr, 0)
				if err != nil {
					return nil, err
				}
				resolved[i] = v
				continue
			}
			resolved[i] = cols[0].Arr
		}
		out := make([]operators.Column, 0, len(received))
		for _, c := range received {
			res, err := op(t, c.Arr, resolved)
			if err != nil {
				return nil, err
			}
			out = append(out, operators.Column{Name: c.Name, Arr: res})
		}
		return out, nil
	}

	return Deferred{
		call:          call,
		rootNames:     roots,
		rootTracked:   rootsTracked,
		outputNames:   outNames,
		outputTracked: outTracked,
		returnsScalar: scalar,
		depth:         depth + 1,
		opName:        d.opName + "->" + name,
	}
}

func unionRoots(d Deferred, args []any) ([]string, bool) {
	if !d.rootTracked {
		return nil, false
	}
	seen := make(map[string]struct{}, len(d.rootNames))
	roots := make([]string, 0, len(d.rootNames))
	for _, n := range d.rootNames {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		roots = append(roots, n)
	}
	for _, a := range args {
		e, ok := a.(Deferred)
		if !ok {
			continue
		}
		if !e.rootTracked {
			return nil, false
		}
		for _, n := range e.rootNames {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			roots = append(roots, n)
		}
	}
	return roots, true
}

// Evaluate runs the expression against one table. The table is only read;
// every evaluation produces fresh columns.
func (d Deferred) Evaluate(t *operators.Table) ([]operators.Column, error) {
	if d.call == nil {
		return nil, operators.Assertion("evaluate called on a zero-value expression")
	}
	return d.call(t)
}

// RootNames reports the input columns the expression reads. The bool is
// false for anonymous expressions; a true with an empty slice means the
// expression reads nothing (a literal).
func (d Deferred) RootNames() ([]string, bool) {
	return d.rootNames, d.rootTracked
}

// OutputNames reports the column names the expression will produce, when
// they can be tracked.
func (d Deferred) OutputNames() ([]string, bool) {
	return d.outputNames, d.outputTracked
}

func (d Deferred) ReturnsScalar() bool { return d.returnsScalar }

func (d Deferred) Depth() int { return d.depth }

func (d Deferred) OpName() string { return d.opName }

// Alias renames the output to a single fixed name. Root names are kept.
func (d Deferred) Alias(name string) Deferred {
	call := func(t *operators.Table) ([]operators.Column, error) {
		cols, err := d.call(t)
		if err != nil {
			return nil, err
		}
		out := make([]operators.Column, len(cols))
		for i, c := range cols {
			out[i] = operators.Column{Name: name, Arr: c.Arr}
		}
		return out, nil
	}
	return Deferred{
		call:          call,
		rootNames:     d.rootNames,
		rootTracked:   d.rootTracked,
		outputNames:   []string{name},
		outputTracked: true,
		returnsScalar: d.returnsScalar,
		depth:         d.depth,
		opName:        d.opName,
		simple:        d.simple,
	}
}

// plainColumns reports whether the receiver is a bare column selection by
// name, the only shape the vectorized grouped-aggregation primitive can take
// as input.
func (d Deferred) plainColumns() bool {
	return d.depth == 0 && d.opName == "col" && d.rootTracked
}

func (d Deferred) withSimple(kind operators.AggKind, ddof int) Deferred {
	d.simple = &simpleAgg{kind: kind, ddof: ddof}
	return d
}

// SimpleAggSpecs translates the expression into specs for the vectorized
// grouped-aggregation primitive, or nil when the expression is too complex
// and must run through per-group evaluation instead.
func (d Deferred) SimpleAggSpecs() []operators.AggSpec {
	if d.simple == nil || !d.rootTracked || !d.outputTracked {
		return nil
	}
	if len(d.rootNames) != len(d.outputNames) {
		return nil
	}
	specs := make([]operators.AggSpec, 0, len(d.rootNames))
	for i := range d.rootNames {
		specs = append(specs, operators.AggSpec{
			Column: d.rootNames[i],
			Output: d.outputNames[i],
			Kind:   d.simple.kind,
			Ddof:   d.simple.ddof,
		})
	}
	return specs
}

func normalizeLiteral(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case uint:
		return uint64(t)
	}
	return v
}

func literalType(v any) (arrow.DataType, error) {
	switch v.(type) {
	case nil:
		return arrow.Null, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int64:
		return arrow.PrimitiveTypes.Int64, nil
	case uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case float64:
		return arrow.PrimitiveTypes.Float64, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case arrow.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	}
	return nil, fmt.Errorf("cannot build a literal from a value of type %T", v)
}
