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

// StrNamespace groups the string operations. Every one requires a string
// column and fails with ErrInvalidOperation otherwise.
type StrNamespace struct {
	d Deferred
}

func (d Deferred) Str() StrNamespace {
	return StrNamespace{d: d}
}

func asStringArray(op string, arr arrow.Array) (*array.String, error) {
	strArr, ok := arr.(*array.String)
	if !ok {
		return nil, operators.InvalidOperation("str."+op,
			fmt.Sprintf("needs a string column, got %s", arr.DataType()))
	}
	return strArr, nil
}

func mapString(op string, arr arrow.Array, fn func(string) string) (arrow.Array, error) {
	strArr, err := asStringArray(op, arr)
	if err != nil {
		return nil, err
	}
	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < strArr.Len(); i++ {
		if strArr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(fn(strArr.Value(i)))
	}
	return b.NewArray(), nil
}

func mapStringBool(op string, arr arrow.Array, fn func(string) bool) (arrow.Array, error) {
	strArr, err := asStringArray(op, arr)
	if err != nil {
		return nil, err
	}
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	for i := 0; i < strArr.Len(); i++ {
		if strArr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(fn(strArr.Value(i)))
	}
	return b.NewArray(), nil
}

func (s StrNamespace) strCall(op string, fn func(string) string) Deferred {
	return s.d.fromCall("str."+op, false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return mapString(op, arr, fn)
	})
}

func (s StrNamespace) boolCall(op string, fn func(string) bool) Deferred {
	return s.d.fromCall("str."+op, false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		return mapStringBool(op, arr, fn)
	})
}

// LenChars counts characters, not bytes.
func (s StrNamespace) LenChars() Deferred {
	return s.d.fromCall("str.len_chars", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		strArr, err := asStringArray("len_chars", arr)
		if err != nil {
			return nil, err
		}
		b := array.NewInt64Builder(memory.DefaultAllocator)
		defer b.Release()
		for i := 0; i < strArr.Len(); i++ {
			if strArr.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(int64(len([]rune(strArr.Value(i)))))
		}
		return b.NewArray(), nil
	})
}

// Replace substitutes the first n occurrences; n < 0 replaces all.
func (s StrNamespace) Replace(old, new string, n int) Deferred {
	return s.strCall("replace", func(v string) string {
		return strings.Replace(v, old, new, n)
	})
}

func (s StrNamespace) ReplaceAll(old, new string) Deferred {
	return s.strCall("replace_all", func(v string) string {
		return strings.ReplaceAll(v, old, new)
	})
}

// StripChars trims the given characters from both ends; an empty set trims
// whitespace.
func (s StrNamespace) StripChars(chars string) Deferred {
	return s.strCall("strip_chars", func(v string) string {
		if chars == "" {
			return strings.TrimSpace(v)
		}
		return strings.Trim(v, chars)
	})
}

func (s StrNamespace) StartsWith(prefix string) Deferred {
	return s.boolCall("starts_with", func(v string) bool {
		return strings.HasPrefix(v, prefix)
	})
}

func (s StrNamespace) EndsWith(suffix string) Deferred {
	return s.boolCall("ends_with", func(v string) bool {
		return strings.HasSuffix(v, suffix)
	})
}

func (s StrNamespace) Contains(substr string) Deferred {
	return s.boolCall("contains", func(v string) bool {
		return strings.Contains(v, substr)
	})
}

// Slice takes length characters starting at offset; a negative offset counts
// from the end, length < 0 means to the end of the string.
func (s StrNamespace) Slice(offset, length int) Deferred {
	return s.strCall("slice", func(v string) string {
		runes := []rune(v)
		start := offset
		if start < 0 {
			start = len(runes) + start
			if start < 0 {
				start = 0
			}
		}
		if start >= len(runes) {
			return ""
		}
		end := len(runes)
		if length >= 0 && start+length < end {
			end = start + length
		}
		return string(runes[start:end])
	})
}

func (s StrNamespace) ToUppercase() Deferred {
	return s.strCall("to_uppercase", strings.ToUpper)
}

func (s StrNamespace) ToLowercase() Deferred {
	return s.strCall("to_lowercase", strings.ToLower)
}

// ToDatetime parses with a strptime-style format into microsecond
// timestamps. A cell that does not match the format fails the evaluation.
func (s StrNamespace) ToDatetime(format string) Deferred {
	return s.d.fromCall("str.to_datetime", false, func(_ *operators.Table, arr arrow.Array, _ []any) (arrow.Array, error) {
		strArr, err := asStringArray("to_datetime", arr)
		if err != nil {
			return nil, err
		}
		layout, err := strptimeLayout(format)
		if err != nil {
			return nil, err
		}
		b := array.NewTimestampBuilder(memory.DefaultAllocator, &arrow.TimestampType{Unit: arrow.Microsecond})
		defer b.Release()
		for i := 0; i < strArr.Len(); i++ {
			if strArr.IsNull(i) {
				b.AppendNull()
				continue
			}
			t, err := time.Parse(layout, strArr.Value(i))
			if err != nil {
				return nil, operators.InvalidOperation("str.to_datetime",
					fmt.Sprintf("value %q does not match format %q", strArr.Value(i), format))
			}
			b.Append(arrow.Timestamp(t.UnixMicro()))
		}
		return b.NewArray(), nil
	})
}
