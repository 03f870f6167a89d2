package operators

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Operator is a streaming producer of tables. Sources (CSV, parquet, in
// memory) implement it; frame.Collect drains one into a single Table.
type Operator interface {
	Next(uint16) (*Table, error)
	Schema() *arrow.Schema
	// Call Operator.Close() after Next returns an io.EOF to clean up resources
	Close() error
}

// Table is the concrete table context handed to deferred expressions for one
// evaluation pass. Expressions only read it; every evaluation produces new
// columns. Chunks records how many source batches the table was collected
// from - operations that are only order-safe within a single batch check it.
type Table struct {
	Schema   *arrow.Schema
	Columns  []arrow.Array
	RowCount uint64
	Chunks   int
}

// Column pairs an evaluated array with the name it will carry in a result
// table. Arrow arrays do not carry names themselves, so renaming operations
// act on this wrapper.
type Column struct {
	Name string
	Arr  arrow.Array
}

func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Schema.Fields()))
	for _, f := range t.Schema.Fields() {
		names = append(names, f.Name)
	}
	return names
}

// ColumnByName fetches the named column. The error lists every available
// column so the caller can tell a typo from a genuinely missing field.
func (t *Table) ColumnByName(name string) (arrow.Array, error) {
	for i, f := range t.Schema.Fields() {
		if f.Name == name {
			return t.Columns[i], nil
		}
	}
	return nil, ColumnNotFound([]string{name}, t.ColumnNames())
}

func (t *Table) ColumnByIndex(idx int) (arrow.Array, error) {
	if idx < 0 || idx >= len(t.Columns) {
		return nil, fmt.Errorf("column index %d out of range, table has %d columns", idx, len(t.Columns))
	}
	return t.Columns[idx], nil
}

func (t *Table) HasColumn(name string) bool {
	return len(t.Schema.FieldIndices(name)) > 0
}

// NewTable validates that columns line up with the schema before wrapping
// them. The schema is always right in case of type mismatches.
func NewTable(schema *arrow.Schema, columns []arrow.Array) (*Table, error) {
	if len(schema.Fields()) != len(columns) {
		return nil, ErrInvalidSchema("schema fields and column count do not match")
	}
	var problems []string
	for i := 0; i < len(columns); i++ {
		field := schema.Field(i)
		colType := columns[i].DataType()
		if !arrow.TypeEqual(colType, field.Type) {
			problems = append(problems,
				fmt.Sprintf("Type mismatch at position %d: column '%s' has type '%s', but schema expects '%s'.",
					i, field.Name, colType, field.Type))
		}
	}
	if len(problems) > 0 {
		return nil, ErrInvalidSchema(strings.Join(problems, " "))
	}
	var rows uint64
	if len(columns) > 0 {
		rows = uint64(columns[0].Len())
	}
	return &Table{
		Schema:   schema,
		Columns:  columns,
		RowCount: rows,
		Chunks:   1,
	}, nil
}

// TableFromColumns builds a table straight from evaluated columns, deriving
// the schema from each array's type.
func TableFromColumns(cols []Column) *Table {
	fields := make([]arrow.Field, 0, len(cols))
	arrays := make([]arrow.Array, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, arrow.Field{
			Name:     c.Name,
			Type:     c.Arr.DataType(),
			Nullable: true,
		})
		arrays = append(arrays, c.Arr)
	}
	var rows uint64
	if len(arrays) > 0 {
		rows = uint64(arrays[0].Len())
	}
	return &Table{
		Schema:   arrow.NewSchema(fields, nil),
		Columns:  arrays,
		RowCount: rows,
		Chunks:   1,
	}
}

// HorizontalConcat glues tables side by side. All inputs must have the same
// row count; duplicate names are rejected since downstream selection is by
// name.
func HorizontalConcat(tables ...*Table) (*Table, error) {
	var fields []arrow.Field
	var columns []arrow.Array
	seen := make(map[string]struct{})
	rows := uint64(0)
	first := true
	for _, t := range tables {
		if t == nil {
			continue
		}
		if first {
			rows = t.RowCount
			first = false
		} else if t.RowCount != rows {
			return nil, ErrInvalidSchema(fmt.Sprintf(
				"horizontal concat of misaligned tables: %d rows vs %d rows", rows, t.RowCount))
		}
		for i, f := range t.Schema.Fields() {
			if _, dup := seen[f.Name]; dup {
				return nil, ErrInvalidSchema(fmt.Sprintf("duplicate column %q in horizontal concat", f.Name))
			}
			seen[f.Name] = struct{}{}
			fields = append(fields, f)
			columns = append(columns, t.Columns[i])
		}
	}
	return &Table{
		Schema:   arrow.NewSchema(fields, nil),
		Columns:  columns,
		RowCount: rows,
		Chunks:   1,
	}, nil
}

// VerticalConcat stacks same-schema batches on top of each other. The result
// remembers how many chunks it came from.
func VerticalConcat(tables []*Table, mem memory.Allocator) (*Table, error) {
	if len(tables) == 0 {
		return nil, ErrInvalidSchema("vertical concat of zero tables")
	}
	schema := tables[0].Schema
	columns := make([]arrow.Array, len(schema.Fields()))
	rows := uint64(0)
	for _, t := range tables {
		if !t.Schema.Equal(schema) {
			return nil, ErrInvalidSchema("vertical concat of tables with different schemas")
		}
		rows += t.RowCount
		for i := range t.Columns {
			if columns[i] == nil {
				columns[i] = t.Columns[i]
				continue
			}
			larger, err := array.Concatenate([]arrow.Array{columns[i], t.Columns[i]}, mem)
			if err != nil {
				return nil, err
			}
			columns[i] = larger
		}
	}
	return &Table{
		Schema:   schema,
		Columns:  columns,
		RowCount: rows,
		Chunks:   len(tables),
	}, nil
}

// SelectColumns keeps only the requested columns, in request order.
func (t *Table) SelectColumns(names ...string) (*Table, error) {
	fieldIndex := make(map[string]int)
	for i, f := range t.Schema.Fields() {
		fieldIndex[f.Name] = i
	}
	var missing []string
	newFields := make([]arrow.Field, 0, len(names))
	newCols := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		idx, exists := fieldIndex[name]
		if !exists {
			missing = append(missing, name)
			continue
		}
		newFields = append(newFields, t.Schema.Field(idx))
		newCols = append(newCols, t.Columns[idx])
	}
	if len(missing) > 0 {
		return nil, ColumnNotFound(missing, t.ColumnNames())
	}
	return &Table{
		Schema:   arrow.NewSchema(newFields, nil),
		Columns:  newCols,
		RowCount: t.RowCount,
		Chunks:   t.Chunks,
	}, nil
}

func ReleaseArrays(arrays []arrow.Array) {
	for _, a := range arrays {
		if a != nil {
			a.Release()
		}
	}
}

// test data helpers

func GenIntArray(values ...int) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewInt64Builder(mem)
	defer builder.Release()
	for _, v := range values {
		builder.Append(int64(v))
	}
	return builder.NewArray()
}

func GenFloatArray(values ...float64) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewFloat64Builder(mem)
	defer builder.Release()
	for _, v := range values {
		builder.Append(v)
	}
	return builder.NewArray()
}

func GenStringArray(values ...string) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewStringBuilder(mem)
	defer builder.Release()
	for _, v := range values {
		builder.Append(v)
	}
	return builder.NewArray()
}

func GenBoolArray(values ...bool) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewBooleanBuilder(mem)
	defer builder.Release()
	for _, v := range values {
		builder.Append(v)
	}
	return builder.NewArray()
}
