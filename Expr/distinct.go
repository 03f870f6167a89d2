package Expr

import (
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

/*
Distinctness predicates cannot assume physical row order survives a group-by
round trip, so they never look at neighbouring rows directly. Instead the
column is wrapped in a throwaway single-column table under a generated
non-colliding name, grouped by value, and each row is classified by where it
sits inside its value group: the minimum row index marks the first
occurrence, the maximum the last, and the group size separates duplicated
values from unique ones.
*/

type distinctKind int

const (
	firstDistinct distinctKind = iota
	lastDistinct
	duplicated
	unique
)

func distinctMask(t *operators.Table, arr arrow.Array, kind distinctKind) (arrow.Array, error) {
	tmp := operators.TempColumnName(t.ColumnNames())
	probe := operators.TableFromColumns([]operators.Column{{Name: tmp, Arr: arr}})
	grouping, err := operators.NewGrouping(probe, []string{tmp})
	if err != nil {
		return nil, err
	}

	mask := make([]bool, arr.Len())
	for _, part := range grouping.Groups {
		minIdx := part.Indices[0]
		maxIdx := part.Indices[0]
		for _, idx := range part.Indices {
			if idx < minIdx {
				minIdx = idx
			}
			if idx > maxIdx {
				maxIdx = idx
			}
		}
		switch kind {
		case firstDistinct:
			mask[minIdx] = true
		case lastDistinct:
			mask[maxIdx] = true
		case duplicated:
			if len(part.Indices) > 1 {
				for _, idx := range part.Indices {
					mask[idx] = true
				}
			}
		case unique:
			if len(part.Indices) == 1 {
				mask[part.Indices[0]] = true
			}
		}
	}

	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(mask, nil)
	return b.NewArray(), nil
}

func (d Deferred) distinctOp(name string, kind distinctKind) Deferred {
	return d.fromCall(name, false, func(t *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return distinctMask(t, arr, kind)
	})
}

// IsFirstDistinct is true on the first occurrence of each value.
func (d Deferred) IsFirstDistinct() Deferred {
	return d.distinctOp("is_first_distinct", firstDistinct)
}

// IsLastDistinct is true on the last occurrence of each value.
func (d Deferred) IsLastDistinct() Deferred {
	return d.distinctOp("is_last_distinct", lastDistinct)
}

// IsDuplicated is true on every row whose value appears more than once.
func (d Deferred) IsDuplicated() Deferred {
	return d.distinctOp("is_duplicated", duplicated)
}

// IsUnique is true on every row whose value appears exactly once.
func (d Deferred) IsUnique() Deferred {
	return d.distinctOp("is_unique", unique)
}
