package frame

import (
	"errors"
	"fmt"
	"io"

	"lazy-df-go/Expr"
	"lazy-df-go/aggr"
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Frame wraps one materialized table and exposes the whole-table operations
// that are deliberately unavailable at the single-column expression level.
type Frame struct {
	table *operators.Table
}

func New(t *operators.Table) *Frame {
	return &Frame{table: t}
}

func (f *Frame) Table() *operators.Table { return f.table }

func (f *Frame) RowCount() uint64 { return f.table.RowCount }

func (f *Frame) ColumnNames() []string { return f.table.ColumnNames() }

// Collect drains a streaming source into one frame. The resulting table
// remembers how many chunks it was stitched from; operations that are only
// order-safe within a single chunk check that counter.
func Collect(src operators.Operator, batchSize uint16) (*Frame, error) {
	var batches []*operators.Table
	for {
		batch, err := src.Next(batchSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := src.Close(); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		empty, err := emptyTable(src.Schema())
		if err != nil {
			return nil, err
		}
		return New(empty), nil
	}
	t, err := operators.VerticalConcat(batches, memory.NewGoAllocator())
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

func emptyTable(schema *arrow.Schema) (*operators.Table, error) {
	cols := make([]arrow.Array, len(schema.Fields()))
	for i, field := range schema.Fields() {
		arr, err := operators.BuildColumn(field.Type, nil)
		if err != nil {
			return nil, err
		}
		cols[i] = arr
	}
	return operators.NewTable(schema, cols)
}

// Select evaluates expressions against the frame and keeps only their
// outputs, in request order. A one-row scalar result broadcasts to the
// frame's length unless every expression is scalar, in which case the
// result is a one-row frame.
func (f *Frame) Select(exprs ...Expr.Deferred) (*Frame, error) {
	evaluated := make([][]operators.Column, len(exprs))
	target := 1
	for i, e := range exprs {
		cols, err := e.Evaluate(f.table)
		if err != nil {
			return nil, err
		}
		evaluated[i] = cols
		for _, c := range cols {
			if c.Arr.Len() > target {
				target = c.Arr.Len()
			}
		}
		if !e.ReturnsScalar() {
			target = int(f.table.RowCount)
		}
	}
	var out []operators.Column
	for _, cols := range evaluated {
		for _, c := range cols {
			arr, err := broadcastColumn(c.Arr, target)
			if err != nil {
				return nil, err
			}
			out = append(out, operators.Column{Name: c.Name, Arr: arr})
		}
	}
	return New(operators.TableFromColumns(out)), nil
}

// WithColumns evaluates expressions and lays their outputs over the
// existing columns: same-named columns are replaced in place, new names are
// appended on the right.
func (f *Frame) WithColumns(exprs ...Expr.Deferred) (*Frame, error) {
	replacements := make(map[string]arrow.Array)
	var appended []operators.Column
	for _, e := range exprs {
		cols, err := e.Evaluate(f.table)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			arr, err := broadcastColumn(c.Arr, int(f.table.RowCount))
			if err != nil {
				return nil, err
			}
			if f.table.HasColumn(c.Name) {
				replacements[c.Name] = arr
				continue
			}
			appended = append(appended, operators.Column{Name: c.Name, Arr: arr})
		}
	}
	out := make([]operators.Column, 0, len(f.table.Columns)+len(appended))
	for i, field := range f.table.Schema.Fields() {
		arr := f.table.Columns[i]
		if repl, pres := replacements[field.Name]; pres {
			arr = repl
		}
		out = append(out, operators.Column{Name: field.Name, Arr: arr})
	}
	out = append(out, appended...)
	return New(operators.TableFromColumns(out)), nil
}

func broadcastColumn(arr arrow.Array, target int) (arrow.Array, error) {
	if arr.Len() == target {
		return arr, nil
	}
	if arr.Len() != 1 {
		return nil, operators.InvalidOperation("select",
			fmt.Sprintf("cannot align a %d-row column with a %d-row frame", arr.Len(), target))
	}
	v, err := operators.ValueAt(arr, 0)
	if err != nil {
		return nil, err
	}
	values := make([]any, target)
	for i := range values {
		values[i] = v
	}
	return operators.BuildColumn(arr.DataType(), values)
}

// Filter keeps the rows where the predicate evaluates to true. Null mask
// cells drop their rows.
func (f *Frame) Filter(predicate Expr.Deferred) (*Frame, error) {
	cols, err := predicate.Evaluate(f.table)
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		return nil, operators.InvalidOperation("filter",
			fmt.Sprintf("predicate produced %d columns, expected 1", len(cols)))
	}
	mask, ok := cols[0].Arr.(*array.Boolean)
	if !ok {
		return nil, operators.InvalidOperation("filter",
			fmt.Sprintf("predicate produced a %s column, expected boolean", cols[0].Arr.DataType()))
	}
	out := make([]arrow.Array, len(f.table.Columns))
	for i, col := range f.table.Columns {
		filtered, err := operators.ApplyBooleanMask(col, mask)
		if err != nil {
			return nil, err
		}
		out[i] = filtered
	}
	var rows uint64
	if len(out) > 0 {
		rows = uint64(out[0].Len())
	}
	return New(&operators.Table{
		Schema:   f.table.Schema,
		Columns:  out,
		RowCount: rows,
		Chunks:   1,
	}), nil
}

func (f *Frame) Head(n int) (*Frame, error) {
	return f.slice(0, n)
}

func (f *Frame) Tail(n int) (*Frame, error) {
	total := int(f.table.RowCount)
	start := total - n
	if start < 0 {
		start = 0
	}
	return f.slice(start, total-start)
}

func (f *Frame) slice(offset, length int) (*Frame, error) {
	total := int(f.table.RowCount)
	// a negative n from Head/Tail lands here; clamp before NewSlice, which
	// panics on negative bounds
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}
	if offset > total {
		offset = total
	}
	if offset+length > total {
		length = total - offset
	}
	out := make([]arrow.Array, len(f.table.Columns))
	for i, col := range f.table.Columns {
		out[i] = array.NewSlice(col, int64(offset), int64(offset+length))
	}
	return New(&operators.Table{
		Schema:   f.table.Schema,
		Columns:  out,
		RowCount: uint64(length),
		Chunks:   1,
	}), nil
}

// GatherEvery keeps every nth row starting at offset.
func (f *Frame) GatherEvery(n, offset int) (*Frame, error) {
	if n <= 0 {
		return nil, operators.InvalidOperation("gather_every", "step must be positive")
	}
	var indices []int
	for i := offset; i < int(f.table.RowCount); i += n {
		indices = append(indices, i)
	}
	t, err := operators.Take(f.table, indices)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// Unique keeps the first row of each distinct key combination, in
// first-appearance order. An empty subset means all columns.
func (f *Frame) Unique(subset ...string) (*Frame, error) {
	keys := subset
	if len(keys) == 0 {
		keys = f.table.ColumnNames()
	}
	grouping, err := operators.NewGrouping(f.table, keys)
	if err != nil {
		return nil, err
	}
	indices := make([]int, 0, len(grouping.Groups))
	for _, part := range grouping.Groups {
		first := part.Indices[0]
		for _, idx := range part.Indices {
			if idx < first {
				first = idx
			}
		}
		indices = append(indices, first)
	}
	t, err := operators.Take(f.table, indices)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// DropNulls removes rows with a null in any of the subset columns. An empty
// subset means all columns.
func (f *Frame) DropNulls(subset ...string) (*Frame, error) {
	cols := f.table.Columns
	if len(subset) > 0 {
		selected, err := f.table.SelectColumns(subset...)
		if err != nil {
			return nil, err
		}
		cols = selected.Columns
	}
	var indices []int
	for row := 0; row < int(f.table.RowCount); row++ {
		keep := true
		for _, col := range cols {
			if col.IsNull(row) {
				keep = false
				break
			}
		}
		if keep {
			indices = append(indices, row)
		}
	}
	t, err := operators.Take(f.table, indices)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// Rename maps old column names to new ones. Data is untouched; only the
// schema changes.
func (f *Frame) Rename(mapping map[string]string) (*Frame, error) {
	for old := range mapping {
		if !f.table.HasColumn(old) {
			return nil, operators.ColumnNotFound([]string{old}, f.table.ColumnNames())
		}
	}
	fields := make([]arrow.Field, len(f.table.Schema.Fields()))
	for i, field := range f.table.Schema.Fields() {
		if newName, pres := mapping[field.Name]; pres {
			field.Name = newName
		}
		fields[i] = field
	}
	return New(&operators.Table{
		Schema:   arrow.NewSchema(fields, nil),
		Columns:  f.table.Columns,
		RowCount: f.table.RowCount,
		Chunks:   f.table.Chunks,
	}), nil
}

// Drop removes the named columns; dropping an absent name is an error.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	dropSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !f.table.HasColumn(n) {
			return nil, operators.ColumnNotFound([]string{n}, f.table.ColumnNames())
		}
		dropSet[n] = struct{}{}
	}
	var keep []string
	for _, n := range f.table.ColumnNames() {
		if _, dropped := dropSet[n]; dropped {
			continue
		}
		keep = append(keep, n)
	}
	t, err := f.table.SelectColumns(keep...)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// Join combines with another frame on name-equal key columns.
func (f *Frame) Join(other *Frame, on []string, how operators.JoinType) (*Frame, error) {
	t, err := operators.Join(f.table, other.table, on, how)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// GroupBy starts a grouped aggregation; see the aggr package.
func (f *Frame) GroupBy(keys ...string) *aggr.GroupBy {
	return aggr.NewGroupBy(f.table, keys...)
}
