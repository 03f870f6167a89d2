package Expr

import (
	"fmt"

	"lazy-df-go/operators"
)

/*
Over re-expresses "evaluate this expression within each group defined by
keys, broadcast back to row granularity". The strategy is aggregation plus
join: run the expression per group to one row each, attach the grouping key
columns, then left-join that aggregate back onto the original rows by the
keys and pick out the expression's output columns.

The join-based broadcast is only order-safe on a table collected into a
single chunk. A table stitched together from several chunks is rejected with
ErrNotSupported until a chunk-safe join strategy exists.
*/
func (d Deferred) Over(keys ...string) Deferred {
	if !d.outputTracked {
		return errExpr(operators.NotSupported(
			"over on an anonymous expression", "selecting columns by name with Col"))
	}
	if len(keys) == 0 {
		return errExpr(operators.InvalidOperation("over", "at least one grouping key is required"))
	}

	outNames := append([]string{}, d.outputNames...)

	roots, rootsTracked := d.rootNames, d.rootTracked
	if rootsTracked {
		merged := append([]string{}, roots...)
		seen := make(map[string]struct{}, len(merged))
		for _, n := range merged {
			seen[n] = struct{}{}
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
		roots = merged
	}

	call := func(t *operators.Table) ([]operators.Column, error) {
		if t.Chunks > 1 {
			return nil, operators.NotSupported(
				fmt.Sprintf("over on a table collected from %d chunks", t.Chunks), "")
		}

		grouping, err := operators.NewGrouping(t, keys)
		if err != nil {
			return nil, err
		}

		if len(grouping.Groups) == 0 {
			cols, err := d.call(t)
			if err != nil {
				return nil, err
			}
			out := make([]operators.Column, len(cols))
			for ci, c := range cols {
				arr, err := operators.BuildColumn(c.Arr.DataType(), nil)
				if err != nil {
					return nil, err
				}
				out[ci] = operators.Column{Name: outNames[ci], Arr: arr}
			}
			return out, nil
		}

		perGroup := make([][]any, len(outNames))
		for i := range perGroup {
			perGroup[i] = make([]any, len(grouping.Groups))
		}
		var sample []operators.Column
		for gi, part := range grouping.Groups {
			sub, err := grouping.SubTable(t, part)
			if err != nil {
				return nil, err
			}
			cols, err := d.call(sub)
			if err != nil {
				return nil, err
			}
			if len(cols) != len(outNames) {
				return nil, operators.Assertion(fmt.Sprintf(
					"over expected %d output columns per group, got %d", len(outNames), len(cols)))
			}
			for ci, c := range cols {
				if c.Arr.Len() != 1 {
					return nil, operators.InvalidOperation("over",
						fmt.Sprintf("expression produced %d rows per group, expected a scalar", c.Arr.Len()))
				}
				v, err := operators.ValueAt(c.Arr, 0)
				if err != nil {
					return nil, err
				}
				perGroup[ci][gi] = v
			}
			if gi == 0 {
				sample = cols
			}
		}

		keyTable, err := grouping.KeyColumns(t)
		if err != nil {
			return nil, err
		}
		aggCols := make([]operators.Column, len(outNames))
		for ci, name := range outNames {
			arr, err := operators.BuildColumn(sample[ci].Arr.DataType(), perGroup[ci])
			if err != nil {
				return nil, err
			}
			aggCols[ci] = operators.Column{Name: name, Arr: arr}
		}
		aggTable, err := operators.HorizontalConcat(keyTable, operators.TableFromColumns(aggCols))
		if err != nil {
			return nil, err
		}

		leftKeys, err := t.SelectColumns(keys...)
		if err != nil {
			return nil, err
		}
		joined, err := operators.Join(leftKeys, aggTable, keys, operators.LeftJoin)
		if err != nil {
			return nil, err
		}

		out := make([]operators.Column, len(outNames))
		for ci, name := range outNames {
			arr, err := joined.ColumnByName(name)
			if err != nil {
				return nil, err
			}
			out[ci] = operators.Column{Name: name, Arr: arr}
		}
		return out, nil
	}

	return Deferred{
		call:          call,
		rootNames:     roots,
		rootTracked:   rootsTracked,
		outputNames:   outNames,
		outputTracked: true,
		returnsScalar: false,
		depth:         d.depth + 1,
		opName:        d.opName + "->over",
	}
}
