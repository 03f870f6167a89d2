package project

import (
	"fmt"
	"io"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

var (
	_ = (operators.Operator)(&InMemorySource{})
)

// in memory format for tests and for callers that already hold Go slices

var (
	ErrInvalidInMemoryDataType = func(Type any) error {
		return fmt.Errorf("%T is not a supported in memory dataType for InMemorySource", Type)
	}
)

type InMemorySource struct {
	schema        *arrow.Schema
	columns       []arrow.Array
	pos           uint16
	fieldToColIDx map[string]int
}

func NewInMemorySource(names []string, columns []any) (*InMemorySource, error) {
	if len(names) != len(columns) {
		return nil, operators.ErrInvalidSchema("number of column names and columns do not match")
	}
	fields := make([]arrow.Field, 0, len(names))
	arrays := make([]arrow.Array, 0, len(names))
	fieldToColIDx := make(map[string]int)
	// parse schema from each of the columns
	for i, col := range columns {
		if !supportedType(col) {
			return nil, operators.ErrInvalidSchema(fmt.Sprintf("unsupported column type for column %s", names[i]))
		}
		field, arr, err := unpackColumn(names[i], col)
		if err != nil {
			return nil, ErrInvalidInMemoryDataType(col)
		}
		fields = append(fields, field)
		arrays = append(arrays, arr)
		fieldToColIDx[field.Name] = i
	}
	return &InMemorySource{
		schema:        arrow.NewSchema(fields, nil),
		columns:       arrays,
		fieldToColIDx: fieldToColIDx,
	}, nil
}

// Table materializes the whole source as a single-chunk table, skipping the
// streaming interface. Handy for expression-level tests.
func (ms *InMemorySource) Table() *operators.Table {
	var rows uint64
	if len(ms.columns) > 0 {
		rows = uint64(ms.columns[0].Len())
	}
	return &operators.Table{
		Schema:   ms.schema,
		Columns:  ms.columns,
		RowCount: rows,
		Chunks:   1,
	}
}

func (ms *InMemorySource) Next(n uint16) (*operators.Table, error) {
	if len(ms.columns) == 0 || ms.pos >= uint16(ms.columns[0].Len()) {
		return nil, io.EOF
	}
	var currRows uint16 = 0
	outPutCols := make([]arrow.Array, len(ms.schema.Fields()))

	for i, field := range ms.schema.Fields() {
		col := ms.columns[ms.fieldToColIDx[field.Name]]
		colLen := uint16(col.Len())
		remaining := colLen - ms.pos
		toRead := n
		if remaining < n {
			toRead = remaining
		}
		slice := array.NewSlice(col, int64(ms.pos), int64(ms.pos+toRead))
		outPutCols[i] = slice
		currRows = toRead
	}
	ms.pos += currRows

	return &operators.Table{
		Schema:   ms.schema,
		Columns:  outPutCols,
		RowCount: uint64(currRows),
		Chunks:   1,
	}, nil
}

func (ms *InMemorySource) Close() error {
	for _, c := range ms.columns {
		c.Release()
	}
	return nil
}

func (ms *InMemorySource) Schema() *arrow.Schema {
	return ms.schema
}

func unpackColumn(name string, col any) (arrow.Field, arrow.Array, error) {
	// need to not only build the array; but also need the schema
	var field arrow.Field
	field.Name = name
	field.Nullable = true // default to nullable
	switch colType := col.(type) {
	case []int:
		field.Type = arrow.PrimitiveTypes.Int64
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		for _, v := range colType {
			b.Append(int64(v))
		}
		return field, b.NewArray(), nil
	case []int64:
		field.Type = arrow.PrimitiveTypes.Int64
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []int32:
		field.Type = arrow.PrimitiveTypes.Int32
		b := array.NewInt32Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []uint64:
		field.Type = arrow.PrimitiveTypes.Uint64
		b := array.NewUint64Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []float32:
		field.Type = arrow.PrimitiveTypes.Float32
		b := array.NewFloat32Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []float64:
		field.Type = arrow.PrimitiveTypes.Float64
		b := array.NewFloat64Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []string:
		field.Type = arrow.BinaryTypes.String
		b := array.NewStringBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []bool:
		field.Type = arrow.FixedWidthTypes.Boolean
		b := array.NewBooleanBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	// a column of pointers keeps its nil entries as nulls
	case []*int64:
		field.Type = arrow.PrimitiveTypes.Int64
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		for _, v := range colType {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(*v)
		}
		return field, b.NewArray(), nil
	case []*float64:
		field.Type = arrow.PrimitiveTypes.Float64
		b := array.NewFloat64Builder(memory.DefaultAllocator)
		defer b.Release()
		for _, v := range colType {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(*v)
		}
		return field, b.NewArray(), nil
	case []*string:
		field.Type = arrow.BinaryTypes.String
		b := array.NewStringBuilder(memory.DefaultAllocator)
		defer b.Release()
		for _, v := range colType {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(*v)
		}
		return field, b.NewArray(), nil
	}
	return arrow.Field{}, nil, fmt.Errorf("unsupported column type for column %s", name)
}

func supportedType(col any) bool {
	switch col.(type) {
	case []int, []int32, []int64,
		[]uint64,
		[]float32, []float64,
		[]string,
		[]bool,
		[]*int64, []*float64, []*string:
		return true
	default:
		return false
	}
}
