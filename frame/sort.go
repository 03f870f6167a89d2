package frame

import (
	"sort"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

// SortKey orders one column. Ascending defaults to false (highest values
// first), NullFirst defaults to false (nulls last).
type SortKey struct {
	Column    string
	Ascending bool
	NullFirst bool
}

func NewSortKey(column string, options ...bool) *SortKey {
	var asc, nullF bool
	switch len(options) {
	case 2:
		asc = options[0]
		nullF = options[1]
	case 1:
		asc = options[0]
	}
	return &SortKey{
		Column:    column,
		Ascending: asc,
		NullFirst: nullF,
	}
}

func CombineSortKeys(sk ...*SortKey) []SortKey {
	var res []SortKey
	for _, s := range sk {
		res = append(res, *s)
	}
	return res
}

// Sort reorders the whole frame by the given keys. All columns move
// together, which is why expression-level sort is rejected in favor of this.
func (f *Frame) Sort(keys []SortKey) (*Frame, error) {
	keyCols := make([]arrow.Array, len(keys))
	for i, k := range keys {
		col, err := f.table.ColumnByName(k.Column)
		if err != nil {
			return nil, err
		}
		keyCols[i] = col
	}

	indices := make([]int, int(f.table.RowCount))
	for i := range indices {
		indices[i] = i
	}

	var sortErr error
	sort.SliceStable(indices, func(a, b int) bool {
		for ki, col := range keyCols {
			va, err := operators.ValueAt(col, indices[a])
			if err != nil {
				sortErr = err
				return false
			}
			vb, err := operators.ValueAt(col, indices[b])
			if err != nil {
				sortErr = err
				return false
			}
			if va == nil && vb == nil {
				continue
			}
			if va == nil {
				return keys[ki].NullFirst
			}
			if vb == nil {
				return !keys[ki].NullFirst
			}
			cmp := operators.CompareValues(va, vb)
			if cmp == 0 {
				continue
			}
			if keys[ki].Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}

	t, err := operators.Take(f.table, indices)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}
