package Expr

import (
	"fmt"
	"strings"
	"time"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// DtNamespace groups the datetime field extractors. They operate on
// timestamp columns; the Total* accessors operate on duration columns.
type DtNamespace struct {
	d Deferred
}

func (d Deferred) Dt() DtNamespace {
	return DtNamespace{d: d}
}

func timestampTimes(op string, arr arrow.Array) ([]time.Time, []bool, error) {
	tsArr, ok := arr.(*array.Timestamp)
	if !ok {
		return nil, nil, operators.InvalidOperation("dt."+op,
			fmt.Sprintf("needs a timestamp column, got %s", arr.DataType()))
	}
	unit := tsArr.DataType().(*arrow.TimestampType).Unit
	times := make([]time.Time, tsArr.Len())
	valid := make([]bool, tsArr.Len())
	for i := 0; i < tsArr.Len(); i++ {
		if tsArr.IsNull(i) {
			continue
		}
		times[i] = tsArr.Value(i).ToTime(unit).UTC()
		valid[i] = true
	}
	return times, valid, nil
}

func (n DtNamespace) fieldCall(op string, fn func(time.Time) int64) Deferred {
	return n.d.fromCall("dt."+op, false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		times, valid, err := timestampTimes(op, arr)
		if err != nil {
			return nil, err
		}
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		for i := range times {
			if !valid[i] {
				b.AppendNull()
				continue
			}
			b.Append(fn(times[i]))
		}
		return b.NewArray(), nil
	})
}

func (n DtNamespace) Year() Deferred {
	return n.fieldCall("year", func(t time.Time) int64 { return int64(t.Year()) })
}

func (n DtNamespace) Month() Deferred {
	return n.fieldCall("month", func(t time.Time) int64 { return int64(t.Month()) })
}

func (n DtNamespace) Day() Deferred {
	return n.fieldCall("day", func(t time.Time) int64 { return int64(t.Day()) })
}

func (n DtNamespace) Hour() Deferred {
	return n.fieldCall("hour", func(t time.Time) int64 { return int64(t.Hour()) })
}

func (n DtNamespace) Minute() Deferred {
	return n.fieldCall("minute", func(t time.Time) int64 { return int64(t.Minute()) })
}

func (n DtNamespace) Second() Deferred {
	return n.fieldCall("second", func(t time.Time) int64 { return int64(t.Second()) })
}

func (n DtNamespace) Millisecond() Deferred {
	return n.fieldCall("millisecond", func(t time.Time) int64 { return int64(t.Nanosecond() / 1e6) })
}

func (n DtNamespace) Microsecond() Deferred {
	return n.fieldCall("microsecond", func(t time.Time) int64 { return int64(t.Nanosecond() / 1e3) })
}

func (n DtNamespace) Nanosecond() Deferred {
	return n.fieldCall("nanosecond", func(t time.Time) int64 { return int64(t.Nanosecond()) })
}

func (n DtNamespace) OrdinalDay() Deferred {
	return n.fieldCall("ordinal_day", func(t time.Time) int64 { return int64(t.YearDay()) })
}

// Date truncates to the calendar date as date32 days.
func (n DtNamespace) Date() Deferred {
	return n.d.fromCall("dt.date", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		times, valid, err := timestampTimes("date", arr)
		if err != nil {
			return nil, err
		}
		b := array.NewDate32Builder(memory.DefaultAllocator)
		defer b.Release()
		for i := range times {
			if !valid[i] {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date32FromTime(times[i]))
		}
		return b.NewArray(), nil
	})
}

// ToString formats with a strftime-style format string.
func (n DtNamespace) ToString(format string) Deferred {
	return n.d.fromCall("dt.to_string", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		times, valid, err := timestampTimes("to_string", arr)
		if err != nil {
			return nil, err
		}
		layout, err := strptimeLayout(format)
		if err != nil {
			return nil, err
		}
		b := array.NewStringBuilder(memory.DefaultAllocator)
		defer b.Release()
		for i := range times {
			if !valid[i] {
				b.AppendNull()
				continue
			}
			b.Append(times[i].Format(layout))
		}
		return b.NewArray(), nil
	})
}

// durationScale rescales a duration column to the target unit given in
// nanoseconds, truncating toward zero. Integer math throughout: a float
// division would drift on inverse scales.
func durationScale(op string, arr arrow.Array, targetNs int64) (arrow.Array, error) {
	durArr, ok := arr.(*array.Duration)
	if !ok {
		return nil, operators.InvalidOperation("dt."+op,
			fmt.Sprintf("needs a duration column, got %s", arr.DataType()))
	}
	var unitNs int64
	switch durArr.DataType().(*arrow.DurationType).Unit {
	case arrow.Second:
		unitNs = 1e9
	case arrow.Millisecond:
		unitNs = 1e6
	case arrow.Microsecond:
		unitNs = 1e3
	case arrow.Nanosecond:
		unitNs = 1
	default:
		return nil, operators.InvalidOperation("dt."+op,
			fmt.Sprintf("duration unit %s is not supported", durArr.DataType().(*arrow.DurationType).Unit))
	}
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < durArr.Len(); i++ {
		if durArr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(int64(durArr.Value(i)) * unitNs / targetNs)
	}
	return b.NewArray(), nil
}

func (n DtNamespace) TotalSeconds() Deferred {
	return n.d.fromCall("dt.total_seconds", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return durationScale("total_seconds", arr, 1e9)
	})
}

func (n DtNamespace) TotalMinutes() Deferred {
	return n.d.fromCall("dt.total_minutes", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return durationScale("total_minutes", arr, 60e9)
	})
}

func (n DtNamespace) TotalMilliseconds() Deferred {
	return n.d.fromCall("dt.total_milliseconds", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return durationScale("total_milliseconds", arr, 1e6)
	})
}

func (n DtNamespace) TotalMicroseconds() Deferred {
	return n.d.fromCall("dt.total_microseconds", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return durationScale("total_microseconds", arr, 1e3)
	})
}

func (n DtNamespace) TotalNanoseconds() Deferred {
	return n.d.fromCall("dt.total_nanoseconds", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return durationScale("total_nanoseconds", arr, 1)
	})
}

// strptimeLayout converts a strptime/strftime format into a Go time layout.
var strptimeTokens = []struct {
	token  string
	layout string
}{
	{"%Y", "2006"},
	{"%y", "06"},
	{"%m", "01"},
	{"%d", "02"},
	{"%H", "15"},
	{"%M", "04"},
	{"%S", "05"},
	{"%f", "000000"},
	{"%B", "January"},
	{"%b", "Jan"},
	{"%A", "Monday"},
	{"%a", "Mon"},
	{"%p", "PM"},
	{"%z", "-0700"},
	{"%%", "%"},
}

func strptimeLayout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		if i+1 >= len(format) {
			return "", operators.InvalidOperation("datetime format",
				fmt.Sprintf("dangling %% at end of format %q", format))
		}
		token := format[i : i+2]
		matched := false
		for _, t := range strptimeTokens {
			if t.token == token {
				b.WriteString(t.layout)
				matched = true
				break
			}
		}
		if !matched {
			return "", operators.InvalidOperation("datetime format",
				fmt.Sprintf("unsupported directive %q in format %q", token, format))
		}
		i++
	}
	return b.String(), nil
}
