package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a submitted value cannot be stored in a
// field's column.
var ErrInvalidValue = errors.New("model: invalid value")

// Coerce converts a submitted value (form string or decoded JSON) into the
// value stored for the field. Blank values become nil for non-text fields.
func (f Field) Coerce(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return f.coerceString(v)
	case bool:
		if f.Type == FieldTypeBoolean || f.Type == FieldTypeInteger {
			return boolInt(v), nil
		}
		return strconv.FormatBool(v), nil
	case float64:
		switch f.Type {
		case FieldTypeInteger:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%w: %s expects an integer, got %v", ErrInvalidValue, f.Name, v)
			}
			// 2^63 is exact in float64; MaxInt64 is not.
			if v < math.MinInt64 || v >= -math.MinInt64 {
				return nil, fmt.Errorf("%w: %s is out of range, got %v", ErrInvalidValue, f.Name, v)
			}
			return int64(v), nil
		case FieldTypeBoolean:
			return boolInt(v != 0), nil
		case FieldTypeFloat:
			return v, nil
		default:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	case int:
		return f.Coerce(float64(v))
	case int64:
		if f.Type == FieldTypeInteger {
			return v, nil
		}
		return f.Coerce(float64(v))
	default:
		return f.coerceString(fmt.Sprint(v))
	}
}

func (f Field) coerceString(s string) (any, error) {
	trimmed := strings.TrimSpace(s)
	switch f.Type {
	case FieldTypeInteger:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, f.Name, s)
		}
		return n, nil
	case FieldTypeFloat:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, f.Name, s)
		}
		return n, nil
	case FieldTypeBoolean:
		switch strings.ToLower(trimmed) {
		case "", "0", "off", "false", "no":
			return int64(0), nil
		case "1", "on", "true", "yes":
			return int64(1), nil
		}
		return nil, fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, f.Name, s)
	case FieldTypeDate, FieldTypeDatetime:
		if trimmed == "" {
			return nil, nil
		}
		return trimmed, nil
	default:
		return s, nil
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// PrepareData coerces every declared field present in data and checks
// required fields. Keys that are not fields are dropped. Errors are reported
// per field under "data.<name>".
func (d Doctype) PrepareData(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(d.Fields))
	verr := &ValidationError{}

	for _, field := range d.Fields {
		raw, present := data[field.Name]
		if !present {
			if field.Required {
				verr.add("data."+field.Name, "is required")
			}
			continue
		}
		value, err := field.Coerce(raw)
		if err != nil {
			verr.add("data."+field.Name, err.Error())
			continue
		}
		if field.Required && isBlank(value) {
			verr.add("data."+field.Name, "is required")
			continue
		}
		out[field.Name] = value
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return out, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
