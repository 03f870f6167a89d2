package Expr

import (
	"errors"
	"testing"
	"time"

	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func genTimestampTable(times ...time.Time) *operators.Table {
	b := array.NewTimestampBuilder(memory.DefaultAllocator, &arrow.TimestampType{Unit: arrow.Microsecond})
	defer b.Release()
	for _, ts := range times {
		b.Append(arrow.Timestamp(ts.UnixMicro()))
	}
	return operators.TableFromColumns([]operators.Column{
		{Name: "ts", Arr: b.NewArray()},
	})
}

func genDurationTable(unit arrow.TimeUnit, values ...int64) *operators.Table {
	b := array.NewDurationBuilder(memory.DefaultAllocator, &arrow.DurationType{Unit: unit})
	defer b.Release()
	for _, v := range values {
		b.Append(arrow.Duration(v))
	}
	return operators.TableFromColumns([]operators.Column{
		{Name: "d", Arr: b.NewArray()},
	})
}

func TestDtFieldExtraction(t *testing.T) {
	tbl := genTimestampTable(
		time.Date(2024, 3, 15, 10, 30, 45, 123456000, time.UTC),
		time.Date(2021, 12, 31, 23, 59, 59, 0, time.UTC),
	)

	cases := []struct {
		name string
		expr Deferred
		want []int64
	}{
		{"year", Col("ts").Dt().Year(), []int64{2024, 2021}},
		{"month", Col("ts").Dt().Month(), []int64{3, 12}},
		{"day", Col("ts").Dt().Day(), []int64{15, 31}},
		{"hour", Col("ts").Dt().Hour(), []int64{10, 23}},
		{"minute", Col("ts").Dt().Minute(), []int64{30, 59}},
		{"second", Col("ts").Dt().Second(), []int64{45, 59}},
		{"millisecond", Col("ts").Dt().Millisecond(), []int64{123, 0}},
		{"microsecond", Col("ts").Dt().Microsecond(), []int64{123456, 0}},
		{"nanosecond", Col("ts").Dt().Nanosecond(), []int64{123456000, 0}},
		{"ordinal_day", Col("ts").Dt().OrdinalDay(), []int64{75, 365}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := evalOne(t, tc.expr, tbl).(*array.Int64)
			for i, w := range tc.want {
				if out.Value(i) != w {
					t.Errorf("row %d: expected %d, got %d", i, w, out.Value(i))
				}
			}
		})
	}
}

func TestDtDate(t *testing.T) {
	tbl := genTimestampTable(time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC))
	out := evalOne(t, Col("ts").Dt().Date(), tbl)
	d32, ok := out.(*array.Date32)
	if !ok {
		t.Fatalf("expected a date32 column, got %s", out.DataType())
	}
	if got := d32.Value(0).ToTime(); got.Year() != 2024 || got.Month() != 3 || got.Day() != 15 {
		t.Errorf("unexpected date: %v", got)
	}
}

func TestDtToString(t *testing.T) {
	tbl := genTimestampTable(time.Date(2024, 3, 15, 10, 5, 0, 0, time.UTC))
	out := evalOne(t, Col("ts").Dt().ToString("%Y/%m/%d %H:%M"), tbl).(*array.String)
	if out.Value(0) != "2024/03/15 10:05" {
		t.Errorf("unexpected formatted value: %q", out.Value(0))
	}
}

func TestDtTotalDurations(t *testing.T) {
	tbl := genDurationTable(arrow.Millisecond, 90000, 1500)

	secs := evalOne(t, Col("d").Dt().TotalSeconds(), tbl).(*array.Int64)
	if secs.Value(0) != 90 || secs.Value(1) != 1 {
		t.Errorf("unexpected total_seconds: %d %d", secs.Value(0), secs.Value(1))
	}
	mins := evalOne(t, Col("d").Dt().TotalMinutes(), tbl).(*array.Int64)
	if mins.Value(0) != 1 || mins.Value(1) != 0 {
		t.Errorf("unexpected total_minutes: %d %d", mins.Value(0), mins.Value(1))
	}
	ms := evalOne(t, Col("d").Dt().TotalMilliseconds(), tbl).(*array.Int64)
	if ms.Value(0) != 90000 {
		t.Errorf("unexpected total_milliseconds: %d", ms.Value(0))
	}
	us := evalOne(t, Col("d").Dt().TotalMicroseconds(), tbl).(*array.Int64)
	if us.Value(0) != 90000000 || us.Value(1) != 1500000 {
		t.Errorf("unexpected total_microseconds: %d %d", us.Value(0), us.Value(1))
	}
	ns := evalOne(t, Col("d").Dt().TotalNanoseconds(), tbl).(*array.Int64)
	if ns.Value(1) != 1500000000 {
		t.Errorf("unexpected total_nanoseconds: %d", ns.Value(1))
	}

	t.Run("microsecond-unit durations", func(t *testing.T) {
		tbl := genDurationTable(arrow.Microsecond, 2500)
		ns := evalOne(t, Col("d").Dt().TotalNanoseconds(), tbl).(*array.Int64)
		if ns.Value(0) != 2500000 {
			t.Errorf("unexpected total_nanoseconds: %d", ns.Value(0))
		}
		us := evalOne(t, Col("d").Dt().TotalMicroseconds(), tbl).(*array.Int64)
		if us.Value(0) != 2500 {
			t.Errorf("unexpected total_microseconds: %d", us.Value(0))
		}
	})
}

func TestDtRejectsWrongTypes(t *testing.T) {
	nums := operators.TableFromColumns([]operators.Column{
		{Name: "n", Arr: operators.GenIntArray(1)},
	})
	if _, err := Col("n").Dt().Year().Evaluate(nums); !errors.Is(err, operators.ErrInvalidOperation) {
		t.Error("expected ErrInvalidOperation extracting a field from a numeric column")
	}
	if _, err := Col("n").Dt().TotalSeconds().Evaluate(nums); !errors.Is(err, operators.ErrInvalidOperation) {
		t.Error("expected ErrInvalidOperation reading durations from a numeric column")
	}
}

func TestStrptimeLayout(t *testing.T) {
	layout, err := strptimeLayout("%Y-%m-%dT%H:%M:%S%z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout != "2006-01-02T15:04:05-0700" {
		t.Errorf("unexpected layout: %q", layout)
	}

	if _, err := strptimeLayout("%"); err == nil {
		t.Error("expected error for a dangling percent")
	}
	if _, err := strptimeLayout("%E"); err == nil {
		t.Error("expected error for an unknown directive")
	}
}
