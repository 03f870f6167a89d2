package Expr

import (
	"errors"
	"testing"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow/array"
)

func genStrTable(values ...string) *operators.Table {
	return operators.TableFromColumns([]operators.Column{
		{Name: "s", Arr: operators.GenStringArray(values...)},
	})
}

func TestStrLenChars(t *testing.T) {
	tbl := genStrTable("héllo", "", "日本語")
	out := evalOne(t, Col("s").Str().LenChars(), tbl).(*array.Int64)
	want := []int64{5, 0, 3}
	for i, w := range want {
		if out.Value(i) != w {
			t.Errorf("row %d: expected %d characters, got %d", i, w, out.Value(i))
		}
	}
}

func TestStrReplace(t *testing.T) {
	tbl := genStrTable("aaa", "aba")

	out := evalOne(t, Col("s").Str().Replace("a", "x", 1), tbl).(*array.String)
	if out.Value(0) != "xaa" || out.Value(1) != "xba" {
		t.Errorf("unexpected replace: %s %s", out.Value(0), out.Value(1))
	}

	out = evalOne(t, Col("s").Str().ReplaceAll("a", "x"), tbl).(*array.String)
	if out.Value(0) != "xxx" || out.Value(1) != "xbx" {
		t.Errorf("unexpected replace_all: %s %s", out.Value(0), out.Value(1))
	}
}

func TestStrStripChars(t *testing.T) {
	tbl := genStrTable("  padded  ", "xxcorexx")

	out := evalOne(t, Col("s").Str().StripChars(""), tbl).(*array.String)
	if out.Value(0) != "padded" {
		t.Errorf("empty set should trim whitespace, got %q", out.Value(0))
	}

	out = evalOne(t, Col("s").Str().StripChars("x"), tbl).(*array.String)
	if out.Value(1) != "core" {
		t.Errorf("expected core, got %q", out.Value(1))
	}
}

func TestStrPredicates(t *testing.T) {
	tbl := genStrTable("apple pie", "banana")

	starts := evalOne(t, Col("s").Str().StartsWith("app"), tbl).(*array.Boolean)
	if !starts.Value(0) || starts.Value(1) {
		t.Errorf("unexpected starts_with: %v %v", starts.Value(0), starts.Value(1))
	}
	ends := evalOne(t, Col("s").Str().EndsWith("pie"), tbl).(*array.Boolean)
	if !ends.Value(0) || ends.Value(1) {
		t.Errorf("unexpected ends_with: %v %v", ends.Value(0), ends.Value(1))
	}
	contains := evalOne(t, Col("s").Str().Contains("an"), tbl).(*array.Boolean)
	if contains.Value(0) || !contains.Value(1) {
		t.Errorf("unexpected contains: %v %v", contains.Value(0), contains.Value(1))
	}
}

func TestStrSlice(t *testing.T) {
	tbl := genStrTable("abcdef")

	out := evalOne(t, Col("s").Str().Slice(1, 3), tbl).(*array.String)
	if out.Value(0) != "bcd" {
		t.Errorf("expected bcd, got %q", out.Value(0))
	}

	t.Run("negative offset counts from the end", func(t *testing.T) {
		out := evalOne(t, Col("s").Str().Slice(-2, -1), tbl).(*array.String)
		if out.Value(0) != "ef" {
			t.Errorf("expected ef, got %q", out.Value(0))
		}
	})

	t.Run("offset past the end is empty", func(t *testing.T) {
		out := evalOne(t, Col("s").Str().Slice(10, 3), tbl).(*array.String)
		if out.Value(0) != "" {
			t.Errorf("expected empty string, got %q", out.Value(0))
		}
	})
}

func TestStrCase(t *testing.T) {
	tbl := genStrTable("MiXeD")
	up := evalOne(t, Col("s").Str().ToUppercase(), tbl).(*array.String)
	lo := evalOne(t, Col("s").Str().ToLowercase(), tbl).(*array.String)
	if up.Value(0) != "MIXED" || lo.Value(0) != "mixed" {
		t.Errorf("unexpected case mapping: %s %s", up.Value(0), lo.Value(0))
	}
}

func TestStrToDatetime(t *testing.T) {
	tbl := genStrTable("2024-03-15 10:30:00")
	out := evalOne(t, Col("s").Str().ToDatetime("%Y-%m-%d %H:%M:%S"), tbl)
	ts, ok := out.(*array.Timestamp)
	if !ok {
		t.Fatalf("expected a timestamp column, got %s", out.DataType())
	}

	parsed := evalOne(t, Col("s").Str().ToDatetime("%Y-%m-%d %H:%M:%S").Dt().Year(), tbl).(*array.Int64)
	if parsed.Value(0) != 2024 {
		t.Errorf("expected year 2024, got %d", parsed.Value(0))
	}
	_ = ts

	t.Run("value not matching the format", func(t *testing.T) {
		bad := genStrTable("not a date")
		_, err := Col("s").Str().ToDatetime("%Y-%m-%d").Evaluate(bad)
		if !errors.Is(err, operators.ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation, got %v", err)
		}
	})

	t.Run("unknown directive", func(t *testing.T) {
		_, err := Col("s").Str().ToDatetime("%Q").Evaluate(tbl)
		if !errors.Is(err, operators.ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation, got %v", err)
		}
	})
}

func TestStrRejectsNonString(t *testing.T) {
	tbl := operators.TableFromColumns([]operators.Column{
		{Name: "n", Arr: operators.GenIntArray(1, 2)},
	})
	_, err := Col("n").Str().ToUppercase().Evaluate(tbl)
	if !errors.Is(err, operators.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}
