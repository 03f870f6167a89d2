package frame

import (
	"errors"
	"testing"

	"lazy-df-go/operators"
	"lazy-df-go/project"

	"github.com/apache/arrow/go/v17/arrow/array"
)

func genSortFrame(t *testing.T) *Frame {
	t.Helper()
	src, err := project.NewInMemorySource(
		[]string{"grade", "score"},
		[]any{
			[]string{"b", "a", "b", "a"},
			[]int64{1, 4, 3, 2},
		},
	)
	if err != nil {
		t.Fatalf("failed to build source: %v", err)
	}
	f, err := Collect(src, 10)
	if err != nil {
		t.Fatalf("failed to collect: %v", err)
	}
	return f
}

func intColumn(t *testing.T, f *Frame, name string) []int64 {
	t.Helper()
	col, err := f.Table().ColumnByName(name)
	if err != nil {
		t.Fatalf("missing column %s: %v", name, err)
	}
	arr := col.(*array.Int64)
	out := make([]int64, arr.Len())
	for i := range out {
		out[i] = arr.Value(i)
	}
	return out
}

func TestSortDefaultsDescending(t *testing.T) {
	f := genSortFrame(t)
	out, err := f.Sort(CombineSortKeys(NewSortKey("score")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := intColumn(t, out, "score")
	want := []int64{4, 3, 2, 1}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSortAscending(t *testing.T) {
	f := genSortFrame(t)
	out, err := f.Sort(CombineSortKeys(NewSortKey("score", true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := intColumn(t, out, "score")
	want := []int64{1, 2, 3, 4}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// rows move together: sorting by one column must reorder the others in step
func TestSortMovesAllColumns(t *testing.T) {
	f := genSortFrame(t)
	out, err := f.Sort(CombineSortKeys(NewSortKey("score", true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grades, _ := out.Table().ColumnByName("grade")
	want := []string{"b", "a", "b", "a"}
	for i, w := range want {
		if grades.(*array.String).Value(i) != w {
			t.Errorf("row %d: expected grade %q, got %q", i, w, grades.(*array.String).Value(i))
		}
	}
}

func TestSortMultiKeyStable(t *testing.T) {
	f := genSortFrame(t)
	out, err := f.Sort(CombineSortKeys(
		NewSortKey("grade", true),
		NewSortKey("score", true),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grades, _ := out.Table().ColumnByName("grade")
	scores := intColumn(t, out, "score")
	wantGrades := []string{"a", "a", "b", "b"}
	wantScores := []int64{2, 4, 1, 3}
	for i := range wantGrades {
		if grades.(*array.String).Value(i) != wantGrades[i] || scores[i] != wantScores[i] {
			t.Errorf("row %d: expected (%s, %d), got (%s, %d)",
				i, wantGrades[i], wantScores[i], grades.(*array.String).Value(i), scores[i])
		}
	}
}

func TestSortNullPlacement(t *testing.T) {
	v1 := int64(1)
	v2 := int64(2)
	src, err := project.NewInMemorySource(
		[]string{"v"},
		[]any{[]*int64{&v1, nil, &v2}},
	)
	if err != nil {
		t.Fatalf("failed to build source: %v", err)
	}
	f, err := Collect(src, 10)
	if err != nil {
		t.Fatalf("failed to collect: %v", err)
	}

	t.Run("nulls last by default", func(t *testing.T) {
		out, err := f.Sort(CombineSortKeys(NewSortKey("v", true)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		col, _ := out.Table().ColumnByName("v")
		if !col.IsNull(2) {
			t.Error("null should sort to the end")
		}
	})

	t.Run("null first when requested", func(t *testing.T) {
		out, err := f.Sort(CombineSortKeys(NewSortKey("v", true, true)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		col, _ := out.Table().ColumnByName("v")
		if !col.IsNull(0) {
			t.Error("null should sort to the front")
		}
	})
}

func TestSortMissingKey(t *testing.T) {
	f := genSortFrame(t)
	if _, err := f.Sort([]SortKey{{Column: "nope"}}); !errors.Is(err, operators.ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}
