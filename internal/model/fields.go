package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fields maps field names to scalar, list or reference values.
type Fields map[string]any

// Clone returns a deep copy. Nested maps, slices and string pointers are
// copied so that mutating the clone never reaches the original.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Fields:
		return x.Clone()
	case map[string]any:
		return map[string]any(Fields(x).Clone())
	case []Fields:
		return cloneRecords(x)
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, m := range x {
			out[i] = map[string]any(Fields(m).Clone())
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case *string:
		if x == nil {
			return x
		}
		s := *x
		return &s
	default:
		return v
	}
}

func cloneRecords(records []Fields) []Fields {
	if records == nil {
		return nil
	}
	out := make([]Fields, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// String returns the value at key as a string; nil and missing yield "".
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

// OptionalString returns nil for missing, nil or empty values.
func (f Fields) OptionalString(key string) *string {
	s := f.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Float returns the value at key coerced to float64.
func (f Fields) Float(key string) (float64, bool) {
	v, err := ToFloat(f[key])
	return v, err == nil
}

// Int returns the value at key coerced to int.
func (f Fields) Int(key string) (int, bool) {
	v, err := ToInt(f[key])
	return v, err == nil
}

// Bool returns the value at key coerced to bool; anything unparsable is false.
func (f Fields) Bool(key string) bool {
	v, err := ToBool(f[key])
	return err == nil && v
}

// StringSlice returns the value at key as a list of strings.
func (f Fields) StringSlice(key string) []string {
	v, _ := ToStringSlice(f[key])
	return v
}

// IsBlank reports whether v counts as "not provided" for a required field.
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case *string:
		return x == nil || strings.TrimSpace(*x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// ToFloat coerces numbers and numeric strings to float64. NaN and the
// infinities are rejected.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("value is empty")
	}
	return 0, fmt.Errorf("%T is not a number", v)
}

// ToInt coerces integral numbers and integer strings to int.
func ToInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x)
		}
		return n, nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
	if f >= math.MaxInt || f < math.MinInt {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}

// Coercion decodes the numeric fields of a sub-record and remembers every
// key whose value could not be coerced. Missing and blank values decode to
// zero without an error; the record's own validation rules apply to them.
type Coercion struct {
	Errors []FieldError
}

// Float returns the first present key of keys as a float64.
func (c *Coercion) Float(f Fields, keys ...string) float64 {
	key, v, ok := firstPresent(f, keys)
	if !ok {
		return 0
	}
	n, err := ToFloat(v)
	if err != nil {
		c.Errors = append(c.Errors, FieldError{Field: key, Message: "must be a number"})
		return 0
	}
	return n
}

// Int returns the first present key of keys as an int.
func (c *Coercion) Int(f Fields, keys ...string) int {
	key, v, ok := firstPresent(f, keys)
	if !ok {
		return 0
	}
	n, err := ToInt(v)
	if err != nil {
		c.Errors = append(c.Errors, FieldError{Field: key, Message: "must be a whole number"})
		return 0
	}
	return n
}

func firstPresent(f Fields, keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && !IsBlank(v) {
			return k, v, true
		}
	}
	return "", nil, false
}

// ToBool coerces booleans and boolean strings.
func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("%T is not a boolean", v)
}

// ToStringSlice coerces []string and []any of strings.
func ToStringSlice(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), x...), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%T is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T is not a list of strings", v)
}
