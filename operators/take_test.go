package operators

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func TestTakeReordersEveryColumn(t *testing.T) {
	tbl := TableFromColumns([]Column{
		{Name: "a", Arr: GenIntArray(10, 20, 30)},
		{Name: "b", Arr: GenStringArray("x", "y", "z")},
	})
	out, err := Take(tbl, []int{2, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", out.RowCount)
	}
	a := out.Columns[0].(*array.Int64)
	b := out.Columns[1].(*array.String)
	if a.Value(0) != 30 || a.Value(1) != 10 {
		t.Errorf("unexpected int order: %d %d", a.Value(0), a.Value(1))
	}
	if b.Value(0) != "z" || b.Value(1) != "x" {
		t.Errorf("unexpected string order: %s %s", b.Value(0), b.Value(1))
	}
}

func TestApplyBooleanMask(t *testing.T) {
	col := GenIntArray(1, 2, 3, 4)
	maskB := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer maskB.Release()
	maskB.AppendValues([]bool{true, false, true, false}, nil)
	mask := maskB.NewArray().(*array.Boolean)

	out, err := ApplyBooleanMask(col, mask)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kept := out.(*array.Int64)
	if kept.Len() != 2 || kept.Value(0) != 1 || kept.Value(1) != 3 {
		t.Errorf("unexpected filter result: %v", kept)
	}
}

func TestTempColumnNameAvoidsCollisions(t *testing.T) {
	existing := []string{"a", "b", "c"}
	name := TempColumnName(existing)
	for _, e := range existing {
		if name == e {
			t.Fatalf("generated name %q collides with an existing column", name)
		}
	}
	if name == TempColumnName(existing) {
		t.Error("two generated names should not repeat")
	}
}

func TestRowIndexColumn(t *testing.T) {
	arr := RowIndexColumn(3, memory.NewGoAllocator()).(*array.Int64)
	for i := 0; i < 3; i++ {
		if arr.Value(i) != int64(i) {
			t.Errorf("position %d: expected %d, got %d", i, i, arr.Value(i))
		}
	}
}
