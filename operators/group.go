package operators

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v17/arrow"
)

/*
Grouping is the shared row partition behind both aggregation paths. It is
computed once per group-by call and handed to the vectorized aggregate
primitive and to the per-group iteration alike, so the two can never diverge
on group set, ordering, or null-key handling.

Groups appear in first-appearance order of their key tuple. Null keys are
kept: a null cell encodes to its own token and forms a regular group.
*/
type Grouping struct {
	Keys   []string
	Groups []GroupPartition
}

// GroupPartition is one key tuple plus the rows sharing it. Ephemeral:
// produced by NewGrouping, consumed during one agg call, never persisted.
type GroupPartition struct {
	KeyValues []any
	Indices   []int
}

func groupableType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BOOL, arrow.STRING, arrow.LARGE_STRING,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.TIMESTAMP, arrow.DATE32:
		return true
	}
	return false
}

func NewGrouping(t *Table, keys []string) (*Grouping, error) {
	keyCols := make([]arrow.Array, len(keys))
	for i, k := range keys {
		col, err := t.ColumnByName(k)
		if err != nil {
			return nil, err
		}
		if !groupableType(col.DataType()) {
			return nil, NotSupported(
				fmt.Sprintf("group by on key %q of type %s", k, col.DataType()), "")
		}
		keyCols[i] = col
	}

	g := &Grouping{Keys: keys}
	bins := make(map[string]int)
	for row := 0; row < int(t.RowCount); row++ {
		key := EncodeRowKey(keyCols, row)
		idx, pres := bins[key]
		if !pres {
			keyValues := make([]any, len(keyCols))
			for j, col := range keyCols {
				v, err := ValueAt(col, row)
				if err != nil {
					return nil, err
				}
				keyValues[j] = v
			}
			idx = len(g.Groups)
			bins[key] = idx
			g.Groups = append(g.Groups, GroupPartition{KeyValues: keyValues})
		}
		g.Groups[idx].Indices = append(g.Groups[idx].Indices, row)
	}
	return g, nil
}

// SubTable materializes the rows of one partition as a standalone table
// context.
func (g *Grouping) SubTable(t *Table, p GroupPartition) (*Table, error) {
	return Take(t, p.Indices)
}

// KeyColumns rebuilds the grouping key columns, one row per group, in group
// order, typed after the source table.
func (g *Grouping) KeyColumns(t *Table) (*Table, error) {
	cols := make([]Column, len(g.Keys))
	for j, k := range g.Keys {
		src, err := t.ColumnByName(k)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(g.Groups))
		for gi, part := range g.Groups {
			values[gi] = part.KeyValues[j]
		}
		arr, err := BuildColumn(src.DataType(), values)
		if err != nil {
			return nil, err
		}
		cols[j] = Column{Name: k, Arr: arr}
	}
	return TableFromColumns(cols), nil
}

// AggKind enumerates what the native grouped-aggregation primitive can
// compute without per-group expression evaluation.
type AggKind int

const (
	AggSum AggKind = iota
	AggMean
	AggMin
	AggMax
	AggCount
	AggNUnique
	AggStd
	AggVar
)

func (k AggKind) String() string {
	switch k {
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	case AggNUnique:
		return "n_unique"
	case AggStd:
		return "std"
	case AggVar:
		return "var"
	}
	return "unknown"
}

// AggSpec asks for one aggregate of one input column under one output name.
type AggSpec struct {
	Column string
	Output string
	Kind   AggKind
	Ddof   int
}

type accumulator interface {
	Update(v any, enc string)
	Finalize() any
}

var (
	_ = (accumulator)(&sumAccumulator{})
	_ = (accumulator)(&meanAccumulator{})
	_ = (accumulator)(&minAccumulator{})
	_ = (accumulator)(&maxAccumulator{})
	_ = (accumulator)(&countAccumulator{})
	_ = (accumulator)(&nuniqueAccumulator{})
	_ = (accumulator)(&momentAccumulator{})
)

type sumAccumulator struct {
	sum float64
}

func (s *sumAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	s.sum += toFloat64(v)
}
func (s *sumAccumulator) Finalize() any { return s.sum }

type meanAccumulator struct {
	sum float64
	n   uint64
}

func (m *meanAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	m.sum += toFloat64(v)
	m.n++
}
func (m *meanAccumulator) Finalize() any {
	if m.n == 0 {
		return nil
	}
	return m.sum / float64(m.n)
}

type minAccumulator struct {
	value any
}

func (m *minAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	if m.value == nil || CompareValues(v, m.value) < 0 {
		m.value = v
	}
}
func (m *minAccumulator) Finalize() any { return m.value }

type maxAccumulator struct {
	value any
}

func (m *maxAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	if m.value == nil || CompareValues(v, m.value) > 0 {
		m.value = v
	}
}
func (m *maxAccumulator) Finalize() any { return m.value }

type countAccumulator struct {
	count int64
}

func (c *countAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	c.count++
}
func (c *countAccumulator) Finalize() any { return c.count }

// nuniqueAccumulator counts null as one distinct value, matching the
// expression-level n_unique.
type nuniqueAccumulator struct {
	seen map[string]struct{}
}

func (n *nuniqueAccumulator) Update(_ any, enc string) {
	if n.seen == nil {
		n.seen = make(map[string]struct{})
	}
	n.seen[enc] = struct{}{}
}
func (n *nuniqueAccumulator) Finalize() any { return int64(len(n.seen)) }

// momentAccumulator backs both std and var.
type momentAccumulator struct {
	sum   float64
	sumSq float64
	n     int
	ddof  int
	std   bool
}

func (m *momentAccumulator) Update(v any, _ string) {
	if v == nil {
		return
	}
	f := toFloat64(v)
	m.sum += f
	m.sumSq += f * f
	m.n++
}
func (m *momentAccumulator) Finalize() any {
	denom := m.n - m.ddof
	if denom <= 0 {
		return nil
	}
	variance := (m.sumSq - m.sum*m.sum/float64(m.n)) / float64(denom)
	if m.std {
		return math.Sqrt(variance)
	}
	return variance
}

// CompareValues orders two non-nil cell values of the same column. Numbers
// compare numerically, strings lexically, bools false-before-true.
func CompareValues(a, b any) int {
	if as, ok := a.(string); ok {
		bs := b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	if ab, ok := a.(bool); ok {
		bb := b.(bool)
		switch {
		case !ab && bb:
			return -1
		case ab && !bb:
			return 1
		}
		return 0
	}
	af, bf := toFloat64(a), toFloat64(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}

func newAccumulator(spec AggSpec) accumulator {
	switch spec.Kind {
	case AggSum:
		return &sumAccumulator{}
	case AggMean:
		return &meanAccumulator{}
	case AggMin:
		return &minAccumulator{}
	case AggMax:
		return &maxAccumulator{}
	case AggCount:
		return &countAccumulator{}
	case AggNUnique:
		return &nuniqueAccumulator{}
	case AggStd:
		return &momentAccumulator{ddof: spec.Ddof, std: true}
	case AggVar:
		return &momentAccumulator{ddof: spec.Ddof}
	}
	return nil
}

func aggOutputType(spec AggSpec, input arrow.DataType) (arrow.DataType, error) {
	switch spec.Kind {
	case AggSum, AggMean, AggStd, AggVar:
		if !IsNumericType(input) {
			return nil, InvalidOperation(spec.Kind.String(),
				fmt.Sprintf("column %q has non-numeric type %s", spec.Column, input))
		}
		return arrow.PrimitiveTypes.Float64, nil
	case AggCount, AggNUnique:
		return arrow.PrimitiveTypes.Int64, nil
	case AggMin, AggMax:
		return input, nil
	}
	return nil, fmt.Errorf("%d is an unsupported aggregate kind", spec.Kind)
}

// GroupAggregate is the native vectorized grouped-aggregation primitive: one
// pass over the rows, an accumulator per (spec, group), no per-group
// expression evaluation. Returns one row per group in grouping order, one
// column per spec in spec order.
func GroupAggregate(t *Table, g *Grouping, specs []AggSpec) (*Table, error) {
	cols := make([]Column, 0, len(specs))
	for _, spec := range specs {
		src, err := t.ColumnByName(spec.Column)
		if err != nil {
			return nil, err
		}
		outType, err := aggOutputType(spec, src.DataType())
		if err != nil {
			return nil, err
		}

		accs := make([]accumulator, len(g.Groups))
		for gi := range g.Groups {
			accs[gi] = newAccumulator(spec)
		}
		needEnc := spec.Kind == AggNUnique
		for gi, part := range g.Groups {
			for _, row := range part.Indices {
				v, err := ValueAt(src, row)
				if err != nil {
					return nil, err
				}
				enc := ""
				if needEnc {
					enc = EncodeKeyAt(src, row)
				}
				accs[gi].Update(v, enc)
			}
		}

		values := make([]any, len(g.Groups))
		for gi := range g.Groups {
			values[gi] = accs[gi].Finalize()
		}
		arr, err := BuildColumn(outType, values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: spec.Output, Arr: arr})
	}
	return TableFromColumns(cols), nil
}
