package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
)

// stringArg reads a string argument. Required identifiers are trimmed and
// must be non-empty; free-text values are returned exactly as given.
func stringArg(args map[string]any, name string, nonEmpty bool) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrValidation, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrValidation, name)
	}
	if !nonEmpty {
		return s, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s must not be empty", contractx.ErrValidation, name)
	}
	return s, nil
}

// intArg reads an integral argument. JSON numbers decode as float64, so
// fractional values are rejected rather than truncated. Numeric strings are
// accepted because models sometimes quote numbers. Values beyond the int
// range saturate; there is no upper bound on a day window.
func intArg(args map[string]any, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return floatToInt(name, v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s must be an integer", contractx.ErrValidation, name)
		}
		return floatToInt(name, f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 0)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s must be an integer", contractx.ErrValidation, name)
		}
		// on ErrRange n already holds the saturated bound
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", contractx.ErrValidation, name)
	}
}

func floatToInt(name string, v float64) (int, error) {
	switch {
	case math.IsInf(v, 1):
		return math.MaxInt, nil
	case math.IsInf(v, -1):
		return math.MinInt, nil
	case math.IsNaN(v) || v != math.Trunc(v):
		return 0, fmt.Errorf("%w: %s must be an integer", contractx.ErrValidation, name)
	case v >= math.MaxInt:
		return math.MaxInt, nil
	case v <= math.MinInt:
		return math.MinInt, nil
	}
	return int(v), nil
}
