package config

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMalformedDocument means the persisted document could not be
	// parsed. Startup must not proceed on a partial document.
	ErrMalformedDocument = errors.New("malformed config document")

	// ErrKeyMissing means a mandatory key has no value at any cascade
	// level, including the compiled-in defaults.
	ErrKeyMissing = errors.New("config key missing")

	// ErrUnknownKey means a key path is outside the closed schema.
	ErrUnknownKey = errors.New("unknown config key")
)

// AsBool coerces a document value to bool.
func AsBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("not a bool: %q", t)
		}
		return b, nil
	}
	return false, fmt.Errorf("not a bool: %v (%T)", v, v)
}

// AsInt coerces a document value to int. JSON numbers arrive as float64.
func AsInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("not an int: %q", t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("not an int: %v (%T)", v, v)
}

// AsFloat coerces a document value to float64.
func AsFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("not a number: %v (%T)", v, v)
}

// AsString coerces a document value to string.
func AsString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("not a string: %v (%T)", v, v)
}

// AsStringSlice coerces a document value to []string. JSON arrays arrive
// as []any.
func AsStringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("not a string list: %v", v)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{t}, nil
	}
	return nil, fmt.Errorf("not a string list: %v (%T)", v, v)
}
