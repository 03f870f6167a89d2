package Expr

import (
	"testing"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

func evalOne(t *testing.T, e Deferred, tbl *operators.Table) arrow.Array {
	t.Helper()
	cols, err := e.Evaluate(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("expected one column, got %d", len(cols))
	}
	return cols[0].Arr
}

func TestArithmetic(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "a", Arr: operators.GenIntArray(10, 20, 30)},
		{Name: "b", Arr: operators.GenIntArray(3, 4, 5)},
	})

	t.Run("add literal", func(t *testing.T) {
		out := evalOne(t, Col("a").Add(5), tbl).(*array.Int64)
		if out.Value(0) != 15 || out.Value(2) != 35 {
			t.Errorf("unexpected values: %d %d", out.Value(0), out.Value(2))
		}
	})

	t.Run("sub column", func(t *testing.T) {
		out := evalOne(t, Col("a").Sub(Col("b")), tbl).(*array.Int64)
		if out.Value(0) != 7 || out.Value(1) != 16 {
			t.Errorf("unexpected values: %d %d", out.Value(0), out.Value(1))
		}
	})

	t.Run("mul", func(t *testing.T) {
		out := evalOne(t, Col("b").Mul(2), tbl).(*array.Int64)
		if out.Value(2) != 10 {
			t.Errorf("expected 10, got %d", out.Value(2))
		}
	})

	t.Run("rsub swaps operands", func(t *testing.T) {
		out := evalOne(t, Col("a").RSub(100), tbl).(*array.Int64)
		if out.Value(0) != 90 {
			t.Errorf("expected 100-10=90, got %d", out.Value(0))
		}
	})

	t.Run("floordiv", func(t *testing.T) {
		out := evalOne(t, Col("a").FloorDiv(Col("b")), tbl).(*array.Float64)
		if out.Value(0) != 3 || out.Value(1) != 5 || out.Value(2) != 6 {
			t.Errorf("unexpected values: %v %v %v", out.Value(0), out.Value(1), out.Value(2))
		}
	})

	t.Run("floordiv by zero yields null", func(t *testing.T) {
		out := evalOne(t, Col("a").FloorDiv(0), tbl)
		for i := 0; i < out.Len(); i++ {
			if !out.IsNull(i) {
				t.Errorf("row %d: division by zero should be null", i)
			}
		}
	})

	t.Run("pow", func(t *testing.T) {
		out := evalOne(t, Col("b").Pow(2), tbl).(*array.Float64)
		if out.Value(0) != 9 || out.Value(2) != 25 {
			t.Errorf("unexpected values: %v %v", out.Value(0), out.Value(2))
		}
	})

	t.Run("mod follows the divisor sign", func(t *testing.T) {
		neg := operators.TableFromColumns([]operators.Column{
			{Name: "x", Arr: operators.GenIntArray(-7, 7)},
		})
		out := evalOne(t, Col("x").Mod(3), neg).(*array.Float64)
		if out.Value(0) != 2 {
			t.Errorf("-7 mod 3 should be 2, got %v", out.Value(0))
		}
		out = evalOne(t, Col("x").Mod(-3), neg).(*array.Float64)
		if out.Value(1) != -2 {
			t.Errorf("7 mod -3 should be -2, got %v", out.Value(1))
		}
	})
}

func TestComparisons(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "a", Arr: operators.GenIntArray(1, 2, 3)},
		{Name: "b", Arr: operators.GenIntArray(2, 2, 2)},
	})

	cases := []struct {
		name string
		expr Deferred
		want []bool
	}{
		{"eq", Col("a").Eq(Col("b")), []bool{false, true, false}},
		{"ne", Col("a").Ne(Col("b")), []bool{true, false, true}},
		{"lt", Col("a").Lt(2), []bool{true, false, false}},
		{"le", Col("a").Le(2), []bool{true, true, false}},
		{"gt", Col("a").Gt(2), []bool{false, false, true}},
		{"ge", Col("a").Ge(2), []bool{false, true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := evalOne(t, tc.expr, tbl).(*array.Boolean)
			for i, w := range tc.want {
				if out.Value(i) != w {
					t.Errorf("row %d: expected %v, got %v", i, w, out.Value(i))
				}
			}
		})
	}

	t.Run("mismatched types rejected", func(t *testing.T) {
		mixed := operators.TableFromColumns([]operators.Column{
			{Name: "n", Arr: operators.GenIntArray(1)},
			{Name: "s", Arr: operators.GenStringArray("1")},
		})
		if _, err := Col("n").Eq(Col("s")).Evaluate(mixed); err == nil {
			t.Error("expected an error comparing int against string columns")
		}
	})
}

func TestLogical(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "p", Arr: operators.GenBoolArray(true, true, false, false)},
		{Name: "q", Arr: operators.GenBoolArray(true, false, true, false)},
	})

	andOut := evalOne(t, Col("p").And(Col("q")), tbl).(*array.Boolean)
	orOut := evalOne(t, Col("p").Or(Col("q")), tbl).(*array.Boolean)
	notOut := evalOne(t, Col("p").Invert(), tbl).(*array.Boolean)

	wantAnd := []bool{true, false, false, false}
	wantOr := []bool{true, true, true, false}
	for i := 0; i < 4; i++ {
		if andOut.Value(i) != wantAnd[i] {
			t.Errorf("and row %d: expected %v", i, wantAnd[i])
		}
		if orOut.Value(i) != wantOr[i] {
			t.Errorf("or row %d: expected %v", i, wantOr[i])
		}
		if notOut.Value(i) == tbl.Columns[0].(*array.Boolean).Value(i) {
			t.Errorf("invert row %d: value unchanged", i)
		}
	}

	t.Run("invert on non-boolean rejected", func(t *testing.T) {
		nums := operators.TableFromColumns([]operators.Column{
			{Name: "n", Arr: operators.GenIntArray(1)},
		})
		if _, err := Col("n").Invert().Evaluate(nums); err == nil {
			t.Error("expected error inverting a numeric column")
		}
	})
}

// an aggregate over an all-null column resolves to a null scalar; arithmetic
// and comparisons against it must propagate null, not fail
func TestNullScalarOperandPropagates(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "a", Arr: operators.GenIntArray(1, 2, 3)},
		{Name: "b", Arr: genNullableInts(nil, nil, nil)},
	})

	t.Run("arithmetic", func(t *testing.T) {
		out := evalOne(t, Col("a").Add(Col("b").Mean()), tbl)
		if out.Len() != 3 {
			t.Fatalf("expected 3 rows, got %d", out.Len())
		}
		for i := 0; i < out.Len(); i++ {
			if !out.IsNull(i) {
				t.Errorf("row %d: adding a null scalar should yield null", i)
			}
		}
	})

	t.Run("reflected arithmetic", func(t *testing.T) {
		out := evalOne(t, Col("a").RSub(Col("b").Mean()), tbl)
		for i := 0; i < out.Len(); i++ {
			if !out.IsNull(i) {
				t.Errorf("row %d: expected null", i)
			}
		}
	})

	t.Run("comparison", func(t *testing.T) {
		out := evalOne(t, Col("a").Gt(Col("b").Mean()), tbl)
		if _, ok := out.(*array.Boolean); !ok {
			t.Fatalf("expected a boolean column, got %s", out.DataType())
		}
		for i := 0; i < out.Len(); i++ {
			if !out.IsNull(i) {
				t.Errorf("row %d: comparing against a null scalar should yield null", i)
			}
		}
	})
}

func TestNullLiteral(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "a", Arr: operators.GenIntArray(1, 2)},
	})

	out := evalOne(t, Lit(nil), tbl)
	if out.Len() != 1 || !out.IsNull(0) {
		t.Fatalf("expected a one-row null column, got %d rows", out.Len())
	}

	t.Run("null literal in arithmetic", func(t *testing.T) {
		out := evalOne(t, Col("a").Add(Lit(nil)), tbl)
		if out.Len() != 2 || !out.IsNull(0) || !out.IsNull(1) {
			t.Error("adding a null literal should yield all nulls")
		}
	})
}

func TestCast(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "n", Arr: operators.GenIntArray(1, 2, 3)},
	})
	out := evalOne(t, Col("n").Cast(arrow.PrimitiveTypes.Float64), tbl)
	if _, ok := out.(*array.Float64); !ok {
		t.Errorf("expected a float64 column, got %s", out.DataType())
	}
}
