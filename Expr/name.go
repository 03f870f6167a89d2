package Expr

import (
	"strings"

	"lazy-df-go/operators"
)

// NameNamespace groups the renaming combinators. They all derive the new
// output names from the expression's root names, not from whatever the
// current output names happen to be: renaming is a 1:1 mapping from original
// column identity to final name, so an untracked expression has nothing to
// map from and every combinator here rejects it the same way.
type NameNamespace struct {
	d Deferred
}

func (d Deferred) Name() NameNamespace {
	return NameNamespace{d: d}
}

func (n NameNamespace) rename(op string, fn func(root string) string) Deferred {
	if !n.d.rootTracked {
		return errExpr(operators.NotSupported(
			"name."+op+" on an anonymous expression", "selecting columns by name with Col"))
	}
	newNames := make([]string, len(n.d.rootNames))
	for i, root := range n.d.rootNames {
		newNames[i] = fn(root)
	}
	d := n.d
	call := func(t *operators.Table) ([]operators.Column, error) {
		cols, err := d.call(t)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(newNames) {
			return nil, operators.Assertion(
				"rename expected one output column per root name")
		}
		out := make([]operators.Column, len(cols))
		for i, c := range cols {
			out[i] = operators.Column{Name: newNames[i], Arr: c.Arr}
		}
		return out, nil
	}
	return Deferred{
		call:          call,
		rootNames:     d.rootNames,
		rootTracked:   true,
		outputNames:   newNames,
		outputTracked: true,
		returnsScalar: d.returnsScalar,
		depth:         d.depth,
		opName:        d.opName + "->name." + op,
		simple:        d.simple,
	}
}

// Keep resets the output names back to the root names, undoing any aliasing
// picked up along the chain.
func (n NameNamespace) Keep() Deferred {
	return n.rename("keep", func(root string) string { return root })
}

// Map derives each output name from its root name through fn.
func (n NameNamespace) Map(fn func(string) string) Deferred {
	return n.rename("map", fn)
}

func (n NameNamespace) Prefix(prefix string) Deferred {
	return n.rename("prefix", func(root string) string { return prefix + root })
}

func (n NameNamespace) Suffix(suffix string) Deferred {
	return n.rename("suffix", func(root string) string { return root + suffix })
}

func (n NameNamespace) ToLowercase() Deferred {
	return n.rename("to_lowercase", strings.ToLower)
}

func (n NameNamespace) ToUppercase() Deferred {
	return n.rename("to_uppercase", strings.ToUpper)
}
