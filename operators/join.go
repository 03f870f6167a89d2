package operators

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	}
	return "UNKNOWN JOIN TYPE"
}

var (
	ErrJoinKeyMissing = func(side, name string) error {
		return fmt.Errorf("join key %q not present on the %s side", name, side)
	}
)

// Join performs a hash join on name-equality of the given key columns. The
// result carries every left column followed by the right columns minus the
// join keys (they would duplicate the left ones). Left rows without a match
// survive a LeftJoin with nulls on the right side; row order of the left
// side is preserved, matches expand in right-side order.
func Join(left, right *Table, on []string, how JoinType) (*Table, error) {
	leftKeys := make([]arrow.Array, len(on))
	rightKeys := make([]arrow.Array, len(on))
	for i, name := range on {
		var err error
		if leftKeys[i], err = left.ColumnByName(name); err != nil {
			return nil, ErrJoinKeyMissing("left", name)
		}
		if rightKeys[i], err = right.ColumnByName(name); err != nil {
			return nil, ErrJoinKeyMissing("right", name)
		}
	}

	// build side: hash every right row by its composite key
	hashed := make(map[string][]int)
	for row := 0; row < int(right.RowCount); row++ {
		key := EncodeRowKey(rightKeys, row)
		hashed[key] = append(hashed[key], row)
	}

	// probe side: emit (leftRow, rightRow) pairs; -1 marks a null right row
	var leftIdx []int
	var rightIdx []int
	for row := 0; row < int(left.RowCount); row++ {
		key := EncodeRowKey(leftKeys, row)
		matches, pres := hashed[key]
		if !pres {
			if how == LeftJoin {
				leftIdx = append(leftIdx, row)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		for _, m := range matches {
			leftIdx = append(leftIdx, row)
			rightIdx = append(rightIdx, m)
		}
	}

	mem := memory.NewGoAllocator()
	ctx := context.TODO()

	leftIdxArr := IndicesArray(leftIdx, mem)
	defer leftIdxArr.Release()
	rightIdxArr := nullableIndicesArray(rightIdx, mem)
	defer rightIdxArr.Release()

	onSet := make(map[string]struct{}, len(on))
	for _, name := range on {
		onSet[name] = struct{}{}
	}

	var fields []arrow.Field
	var columns []arrow.Array
	for i, f := range left.Schema.Fields() {
		slice, err := compute.TakeArray(ctx, left.Columns[i], leftIdxArr)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		columns = append(columns, slice)
	}
	for i, f := range right.Schema.Fields() {
		if _, skip := onSet[f.Name]; skip {
			continue
		}
		slice, err := compute.TakeArray(ctx, right.Columns[i], rightIdxArr)
		if err != nil {
			return nil, err
		}
		outField := f
		outField.Nullable = true // left join can introduce nulls
		fields = append(fields, outField)
		columns = append(columns, slice)
	}

	return &Table{
		Schema:   arrow.NewSchema(fields, nil),
		Columns:  columns,
		RowCount: uint64(len(leftIdx)),
		Chunks:   1,
	}, nil
}

// nullableIndicesArray encodes -1 entries as null indices; the take kernel
// turns those into null output cells.
func nullableIndicesArray(indices []int, mem memory.Allocator) arrow.Array {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	for _, i := range indices {
		if i < 0 {
			b.AppendNull()
			continue
		}
		b.Append(int32(i))
	}
	return b.NewArray()
}
