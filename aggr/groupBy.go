package aggr

import (
	"fmt"

	"lazy-df-go/Expr"
	"lazy-df-go/config"
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

/*
GroupBy is the two-tier grouped aggregation engine. Agg walks a fixed state
machine:

 1. validate: every expression must have tracked output names; anonymous
    expressions are rejected because the result layout is defined as the
    grouping keys followed by every expression's output names in request
    order.
 2. classify: an expression that is exactly one native reduction over a
    plainly selected column is "simple", everything else is "complex".
 3. simple path: one batched call into the vectorized grouped-aggregation
    primitive. No per-group iteration; this is the common case and carries
    the cost profile.
 4. complex path: each group's rows are materialized as a subset table and
    every complex expression is evaluated against it to a scalar.
 5. assemble: key columns, then simple columns, then complex columns, all
    aligned 1:1 by group, reordered to keys ++ output names in request
    order.

Both paths consume the same Grouping value, so the group set, order and
null-key handling cannot diverge between them.
*/
type GroupBy struct {
	table *operators.Table
	keys  []string
}

func NewGroupBy(t *operators.Table, keys ...string) *GroupBy {
	return &GroupBy{table: t, keys: keys}
}

func (g *GroupBy) Keys() []string { return g.keys }

func (g *GroupBy) Agg(exprs ...Expr.Deferred) (*operators.Table, error) {
	if len(g.keys) == 0 {
		return nil, operators.InvalidOperation("group_by", "at least one grouping key is required")
	}

	// 1. validate. The result layout is keys ++ output names, so every name
	// must be unique across the keys and all expressions; a repeat would
	// silently shadow another aggregate.
	taken := make(map[string]struct{}, len(g.keys))
	for _, k := range g.keys {
		taken[k] = struct{}{}
	}
	var finalOrder []string
	for _, e := range exprs {
		names, tracked := e.OutputNames()
		if !tracked {
			return nil, operators.AnonymousExpression("group_by aggregation")
		}
		for _, n := range names {
			if _, dup := taken[n]; dup {
				return nil, operators.InvalidOperation("group_by",
					fmt.Sprintf("duplicate output column %q; alias one of the expressions", n))
			}
			taken[n] = struct{}{}
			finalOrder = append(finalOrder, n)
		}
	}

	// 2. classify
	var simpleSpecs []operators.AggSpec
	var complexExprs []Expr.Deferred
	for _, e := range exprs {
		if specs := e.SimpleAggSpecs(); specs != nil {
			simpleSpecs = append(simpleSpecs, specs...)
			continue
		}
		complexExprs = append(complexExprs, e)
	}

	grouping, err := operators.NewGrouping(g.table, g.keys)
	if err != nil {
		return nil, err
	}
	if max := config.GetConfig().Eval.MaxGroups; max > 0 && len(grouping.Groups) > max {
		return nil, operators.InvalidOperation("group_by",
			fmt.Sprintf("%d groups exceeds the configured cap of %d", len(grouping.Groups), max))
	}

	keyTable, err := grouping.KeyColumns(g.table)
	if err != nil {
		return nil, err
	}

	pieces := []*operators.Table{keyTable}

	// 3. simple path
	if len(simpleSpecs) > 0 {
		simpleTable, err := operators.GroupAggregate(g.table, grouping, simpleSpecs)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, simpleTable)
	}

	// 4. complex path
	if len(complexExprs) > 0 {
		complexTable, err := g.evalPerGroup(grouping, complexExprs)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, complexTable)
	}

	// 5. assemble
	result, err := operators.HorizontalConcat(pieces...)
	if err != nil {
		return nil, err
	}
	order := append(append([]string{}, g.keys...), finalOrder...)
	return result.SelectColumns(order...)
}

// evalPerGroup materializes each group as its own table context and reduces
// every complex expression against it. Group order is the grouping's
// first-appearance order, the same baseline the key columns use.
func (g *GroupBy) evalPerGroup(grouping *operators.Grouping, exprs []Expr.Deferred) (*operators.Table, error) {
	type outCol struct {
		name   string
		dtype  arrow.DataType
		values []any
	}
	var order []*outCol
	byName := make(map[string]*outCol)

	for gi, part := range grouping.Groups {
		sub, err := grouping.SubTable(g.table, part)
		if err != nil {
			return nil, err
		}
		for _, e := range exprs {
			cols, err := e.Evaluate(sub)
			if err != nil {
				return nil, err
			}
			for _, c := range cols {
				if c.Arr.Len() != 1 {
					return nil, operators.InvalidOperation("group_by aggregation",
						fmt.Sprintf("expression %q produced %d rows for one group, expected a scalar",
							e.OpName(), c.Arr.Len()))
				}
				v, err := operators.ValueAt(c.Arr, 0)
				if err != nil {
					return nil, err
				}
				oc, pres := byName[c.Name]
				if !pres {
					// the first group fixes the output type; every later
					// group's scalar comes from the same expression
					oc = &outCol{name: c.Name, dtype: c.Arr.DataType(), values: make([]any, len(grouping.Groups))}
					byName[c.Name] = oc
					order = append(order, oc)
				}
				oc.values[gi] = v
			}
		}
	}

	// zero groups: the columns still exist with no rows, and one evaluation
	// against the full table supplies their types
	if len(grouping.Groups) == 0 {
		for _, e := range exprs {
			probeCols, err := e.Evaluate(g.table)
			if err != nil {
				return nil, err
			}
			for _, pc := range probeCols {
				if _, pres := byName[pc.Name]; pres {
					continue
				}
				oc := &outCol{name: pc.Name, dtype: pc.Arr.DataType()}
				byName[pc.Name] = oc
				order = append(order, oc)
			}
		}
	}

	cols := make([]operators.Column, 0, len(order))
	for _, oc := range order {
		arr, err := operators.BuildColumn(oc.dtype, oc.values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, operators.Column{Name: oc.name, Arr: arr})
	}
	return operators.TableFromColumns(cols), nil
}
