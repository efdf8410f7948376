package unification

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convert(rule FieldRule, v any) (any, error) {
	switch rule.Kind {
	case "", KindString:
		return toString(v)
	case KindNumber:
		return toNumber(v)
	case KindBool:
		return toBool(v)
	case KindTime:
		return toTime(v, rule.Layout)
	default:
		return v, nil
	}
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool", t)
		}
		return b, nil
	case float64:
		return t != 0, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool", t)
		}
		return f != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func toTime(v any, layout string) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot convert %q to time", t)
		}
		return time.Unix(n, 0).UTC(), nil
	case string:
		layouts := fallbackLayouts
		if layout != "" {
			layouts = append([]string{layout}, fallbackLayouts...)
		}
		for _, l := range layouts {
			if parsed, err := time.Parse(l, strings.TrimSpace(t)); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse time %q", t)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
}

// outward converts a canonical value back to its provider shape.
func outward(rule FieldRule, v any) any {
	if v == nil {
		return nil
	}
	if rule.Kind == KindTime {
		if t, ok := v.(time.Time); ok {
			layout := rule.Layout
			if layout == "" {
				layout = DefaultTimeLayout
			}
			return t.Format(layout)
		}
	}
	if len(rule.Values) > 0 {
		s, err := toString(v)
		if err == nil {
			remotes := slices.Sorted(maps.Keys(rule.Values))
			for _, remote := range remotes {
				if rule.Values[remote] == s {
					return remote
				}
			}
		}
	}
	return v
}

// remoteIDString stringifies a provider id. Empty or unsupported values
// yield "".
func remoteIDString(v any) string {
	if v == nil {
		return ""
	}
	s, err := toString(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
