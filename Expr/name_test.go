package Expr

import (
	"errors"
	"strings"
	"testing"

	"lazy-df-go/operators"
)

func TestNameCombinators(t *testing.T) {
	tbl := generateTestColumns()

	cases := []struct {
		name string
		expr Deferred
		want []string
	}{
		{"prefix", Col("age", "salary").Name().Prefix("old_"), []string{"old_age", "old_salary"}},
		{"suffix", Col("age").Name().Suffix("_years"), []string{"age_years"}},
		{"map", Col("age").Name().Map(func(n string) string { return strings.ToUpper(n) + "!" }), []string{"AGE!"}},
		{"to_uppercase", Col("age").Name().ToUppercase(), []string{"AGE"}},
		{"to_lowercase", Col("name").Name().ToLowercase(), []string{"name"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			names, tracked := tc.expr.OutputNames()
			if !tracked {
				t.Fatal("rename combinators must track output names")
			}
			for i, w := range tc.want {
				if names[i] != w {
					t.Errorf("expected %q, got %q", w, names[i])
				}
			}
			cols, err := tc.expr.Evaluate(tbl)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, w := range tc.want {
				if cols[i].Name != w {
					t.Errorf("evaluated column %d: expected name %q, got %q", i, w, cols[i].Name)
				}
			}
		})
	}
}

// keep undoes aliasing by mapping back to the root names
func TestNameKeepRestoresRoots(t *testing.T) {
	tbl := generateTestColumns()
	e := Col("age").Alias("whatever").Name().Keep()
	names, _ := e.OutputNames()
	if names[0] != "age" {
		t.Fatalf("expected age, got %v", names)
	}
	cols, err := e.Evaluate(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols[0].Name != "age" {
		t.Errorf("expected evaluated name age, got %q", cols[0].Name)
	}
}

// renames derive from the roots, not from intermediate aliases
func TestNameDerivesFromRoots(t *testing.T) {
	names, _ := Col("age").Alias("x").Name().Prefix("p_").OutputNames()
	if names[0] != "p_age" {
		t.Errorf("prefix should apply to the root name, got %v", names)
	}
}

func TestNameRejectsAnonymous(t *testing.T) {
	tbl := generateTestColumns()
	_, err := Nth(0).Name().Suffix("_x").Evaluate(tbl)
	if !errors.Is(err, operators.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "Col") {
		t.Errorf("error should point at name-based selection, got %q", err.Error())
	}
}

// the vectorized group-by hint survives a rename
func TestNameKeepsSimpleAggHint(t *testing.T) {
	specs := Col("age").Sum().Name().Prefix("sum_").SimpleAggSpecs()
	if len(specs) != 1 || specs[0].Output != "sum_age" || specs[0].Column != "age" {
		t.Errorf("unexpected specs after rename: %v", specs)
	}
}
