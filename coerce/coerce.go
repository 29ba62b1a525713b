package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"filterCompiler/types"
)

// DateLayout is the canonical form of a coerced date.
const DateLayout = "2006-01-02"

// isoLayouts are the ISO-8601 shapes accepted for dates. Fractional seconds
// are accepted after any layout that carries seconds. A bare year-month
// resolves to the first day of the month.
var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15",
	"2006-01-02T15:04",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z07",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"20060102",
	"20060102T150405",
	"20060102T150405Z0700",
	"2006-01",
}

// CoercionError reports a raw value that cannot be read as its declared type.
type CoercionError struct {
	Value any
	Type  types.ValueType
}

func (e *CoercionError) Error() string {
	kind := e.Type.String()
	if e.Type == types.TypeInt {
		kind = "number"
	}
	return fmt.Sprintf("Invalid %s: %v", kind, e.Value)
}

// CoerceValue converts a raw value into the canonical Go value of t:
// float64 for number and int, bool, "YYYY-MM-DD" for date and string
// otherwise. Slices are converted element by element into a []any.
func CoerceValue(v any, t types.ValueType) (any, error) {
	if list, ok := asList(v); ok {
		out := make([]any, len(list))
		for i, item := range list {
			c, err := CoerceValue(item, t)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	switch t {
	case types.TypeNumber, types.TypeInt:
		return toNumber(v, t)
	case types.TypeBoolean:
		return toBool(v), nil
	case types.TypeDate:
		return toDate(v)
	default:
		return toString(v), nil
	}
}

// int is not truncated; it coerces exactly like number.
func toNumber(v any, t types.ValueType) (float64, error) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		f, err = cast.ToFloat64E(s)
	case json.Number:
		f, err = n.Float64()
	default:
		f, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &CoercionError{Value: v, Type: t}
	}
	return f, nil
}

// toBool never fails: anything but true or "true" is false.
func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

func toDate(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(DateLayout), nil
	case *time.Time:
		if d != nil {
			return d.Format(DateLayout), nil
		}
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range isoLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.Format(DateLayout), nil
			}
		}
	}
	return "", &CoercionError{Value: v, Type: types.TypeDate}
}

func toString(v any) string {
	if v == nil {
		return "null"
	}
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func asList(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case string, []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
