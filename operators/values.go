package operators

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// ValueAt unboxes one cell into a Go value. Nulls come back as nil - the
// engine treats nil as "null cell" everywhere it shuttles scalars around
// (group keys, per-group aggregates, fill values).
func ValueAt(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Timestamp:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i), nil
	case *array.Duration:
		return a.Value(i), nil
	}
	return nil, fmt.Errorf("cannot extract value of type %s", arr.DataType())
}

// NumericAt unboxes one cell as float64. The bool reports validity: false
// for a null cell.
func NumericAt(arr arrow.Array, i int) (float64, bool, error) {
	if arr.IsNull(i) {
		return 0, false, nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(i)), true, nil
	case *array.Int16:
		return float64(a.Value(i)), true, nil
	case *array.Int32:
		return float64(a.Value(i)), true, nil
	case *array.Int64:
		return float64(a.Value(i)), true, nil
	case *array.Uint8:
		return float64(a.Value(i)), true, nil
	case *array.Uint16:
		return float64(a.Value(i)), true, nil
	case *array.Uint32:
		return float64(a.Value(i)), true, nil
	case *array.Uint64:
		return float64(a.Value(i)), true, nil
	case *array.Float32:
		return float64(a.Value(i)), true, nil
	case *array.Float64:
		return a.Value(i), true, nil
	}
	return 0, false, InvalidOperation("numeric access",
		fmt.Sprintf("%v of type %s cannot be read as a number", arr.DataType(), arr.DataType()))
}

func IsNumericType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	}
	return false
}

// EncodeKeyAt renders one cell into a string that is unique per value and
// safe to splice into a composite group/join key. Nulls encode as a distinct
// token so a null key forms its own group rather than vanishing.
func EncodeKeyAt(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return "\x00null"
	}
	switch a := arr.(type) {
	case *array.String:
		return "s:" + a.Value(i)
	case *array.LargeString:
		return "s:" + a.Value(i)
	case *array.Boolean:
		return "b:" + strconv.FormatBool(a.Value(i))
	case *array.Float32:
		return "f:" + strconv.FormatFloat(float64(a.Value(i)), 'g', -1, 64)
	case *array.Float64:
		return "f:" + strconv.FormatFloat(a.Value(i), 'g', -1, 64)
	}
	// remaining fixed width types round trip exactly through ValueStr
	return "v:" + arr.ValueStr(i)
}

// EncodeRowKey builds the composite key for one row across several columns.
func EncodeRowKey(cols []arrow.Array, row int) string {
	var b strings.Builder
	for j, col := range cols {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(EncodeKeyAt(col, row))
	}
	return b.String()
}

// BuildColumn freezes collected scalars back into an Arrow array of the
// given type. nil entries become nulls. This is how group keys and per-group
// aggregate results re-materialize after the manual aggregation path.
func BuildColumn(dt arrow.DataType, values []any) (arrow.Array, error) {
	mem := memory.DefaultAllocator
	switch dt.ID() {
	case arrow.NULL:
		// every cell of a null-typed column is null regardless of the
		// collected values; this is what a nil literal materializes as
		return array.NewNull(len(values)), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return b.NewArray(), nil
	case arrow.INT8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toInt8(v))
		}
		return b.NewArray(), nil
	case arrow.INT16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toInt16(v))
		}
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toInt32(v))
		}
		return b.NewArray(), nil
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toInt64(v))
		}
		return b.NewArray(), nil
	case arrow.UINT8:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(uint8))
		}
		return b.NewArray(), nil
	case arrow.UINT16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(uint16))
		}
		return b.NewArray(), nil
	case arrow.UINT32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(uint32))
		}
		return b.NewArray(), nil
	case arrow.UINT64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(uint64))
		}
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toFloat32(v))
		}
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toFloat64(v))
		}
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(string))
		}
		return b.NewArray(), nil
	case arrow.TIMESTAMP:
		b := array.NewTimestampBuilder(mem, dt.(*arrow.TimestampType))
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(arrow.Timestamp))
		}
		return b.NewArray(), nil
	case arrow.DATE32:
		b := array.NewDate32Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(arrow.Date32))
		}
		return b.NewArray(), nil
	case arrow.DURATION:
		b := array.NewDurationBuilder(mem, dt.(*arrow.DurationType))
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(arrow.Duration))
		}
		return b.NewArray(), nil
	case arrow.LARGE_STRING:
		b := array.NewLargeStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(string))
		}
		return b.NewArray(), nil
	}
	return nil, fmt.Errorf("cannot build column of type %s", dt)
}

func toInt8(v any) int8 {
	switch t := v.(type) {
	case int8:
		return t
	case int64:
		return int8(t)
	case float64:
		return int8(t)
	}
	return v.(int8)
}

func toInt16(v any) int16 {
	switch t := v.(type) {
	case int16:
		return t
	case int64:
		return int16(t)
	case float64:
		return int16(t)
	}
	return v.(int16)
}

func toInt32(v any) int32 {
	switch t := v.(type) {
	case int32:
		return t
	case int:
		return int32(t)
	case int64:
		return int32(t)
	case float64:
		return int32(t)
	}
	return v.(int32)
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	}
	return v.(int64)
}

func toFloat32(v any) float32 {
	switch t := v.(type) {
	case float32:
		return t
	case float64:
		return float32(t)
	}
	return v.(float32)
}

func toFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v.(float64)
}
