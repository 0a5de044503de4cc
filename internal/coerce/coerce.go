// Package coerce converts loosely typed parameter values (Go numerics,
// JSON numbers, textual forms) into canonical Go types.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bool accepts bools, any numeric (non-zero is true) and the textual
// forms understood by strconv.ParseBool plus yes/no/on/off.
func Bool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case "yes", "on", "y":
			return true, nil
		case "no", "off", "n", "":
			return false, nil
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return false, fmt.Errorf("cannot interpret %q as bool", x)
		}
		return f != 0, nil
	default:
		f, err := Float64(v)
		if err != nil {
			return false, fmt.Errorf("cannot interpret %T as bool", v)
		}
		return f != 0, nil
	}
}

func Float64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as number", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot interpret %T as number", v)
	}
}

// Int accepts integral values of any numeric or textual form.
func Int(v any) (int, error) {
	f, err := Float64(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
	if f > math.MaxInt32*float64(1<<31) || f < -math.MaxInt32*float64(1<<31) {
		return 0, fmt.Errorf("value %v out of range", v)
	}
	return int(f), nil
}

func Uint32(v any) (uint32, error) {
	n, err := Int(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("value %v out of uint32 range", v)
	}
	return uint32(n), nil
}

func String(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("cannot interpret %T as string", v)
	}
}

// Ints accepts integer slices in the common decoded forms.
func Ints(v any) ([]int, error) {
	switch x := v.(type) {
	case []int:
		return append([]int(nil), x...), nil
	case []uint32:
		out := make([]int, len(x))
		for i, n := range x {
			out[i] = int(n)
		}
		return out, nil
	case []any:
		out := make([]int, len(x))
		for i, item := range x {
			n, err := Int(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		n, err := Int(v)
		if err != nil {
			return nil, fmt.Errorf("cannot interpret %T as integer list", v)
		}
		return []int{n}, nil
	}
}
