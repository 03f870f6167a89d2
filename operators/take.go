package operators

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// IndicesArray freezes row positions into an int32 index array for the take
// kernel.
func IndicesArray(indices []int, mem memory.Allocator) arrow.Array {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	for _, i := range indices {
		b.Append(int32(i))
	}
	return b.NewArray()
}

// TakeColumn gathers the rows at the given positions out of one column.
func TakeColumn(col arrow.Array, indices []int) (arrow.Array, error) {
	mem := memory.NewGoAllocator()
	idxArr := IndicesArray(indices, mem)
	defer idxArr.Release()
	return compute.TakeArray(context.TODO(), col, idxArr)
}

// Take gathers the same row positions out of every column of the table.
func Take(t *Table, indices []int) (*Table, error) {
	cols := make([]arrow.Array, len(t.Columns))
	for i, col := range t.Columns {
		arr, err := TakeColumn(col, indices)
		if err != nil {
			return nil, err
		}
		cols[i] = arr
	}
	return &Table{
		Schema:   t.Schema,
		Columns:  cols,
		RowCount: uint64(len(indices)),
		Chunks:   1,
	}, nil
}

// ApplyBooleanMask keeps the rows where the mask is true.
func ApplyBooleanMask(col arrow.Array, mask *array.Boolean) (arrow.Array, error) {
	datum, err := compute.Filter(
		context.TODO(),
		compute.NewDatum(col),
		compute.NewDatum(mask),
		*compute.DefaultFilterOptions(),
	)
	if err != nil {
		return nil, err
	}
	arr := datum.(*compute.ArrayDatum).MakeArray()
	return arr, nil
}

// TempColumnName generates a column name guaranteed not to collide with any
// of the existing names. Used by operations that need to smuggle a row index
// through a group-by round trip.
func TempColumnName(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic(err) // crypto/rand failing means the host is broken
		}
		name := "_tmp_" + hex.EncodeToString(buf)
		if _, clash := taken[name]; !clash {
			return name
		}
	}
}

// RowIndexColumn produces [0, 1, ..., n-1] as an int64 column.
func RowIndexColumn(n int, mem memory.Allocator) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Append(int64(i))
	}
	return b.NewArray()
}
