package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Resolve walks root one key at a time. String keys descend into
// map[string]any values and int keys into []any values. Any other
// combination, an out-of-range index, a missing key or a JSON null
// yields (nil, false). Resolve never panics.
func Resolve(root any, path ...any) (any, bool) {
	cur := root
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			k, ok := key.(string)
			if !ok {
				return nil, false
			}
			next, ok := node[k]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, ok := key.(int)
			if !ok || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// ParsePath splits a dotted path; all-digit segments become indices.
func ParsePath(dotted string) []any {
	if dotted == "" {
		return nil
	}
	parts := strings.Split(dotted, ".")
	path := make([]any, 0, len(parts))
	for _, p := range parts {
		if i, err := strconv.Atoi(p); err == nil && i >= 0 {
			path = append(path, i)
			continue
		}
		path = append(path, p)
	}
	return path
}

// ResolveString returns the value at path as a trimmed string. Numbers are
// formatted; empty strings count as missing.
func ResolveString(root any, path ...any) *string {
	v, ok := Resolve(root, path...)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// ResolveFloat accepts JSON numbers and numeric strings.
func ResolveFloat(root any, path ...any) *float64 {
	v, ok := Resolve(root, path...)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// maxExactInt bounds the integers a float64 represents exactly.
const maxExactInt = 1 << 53

// ResolveInt is ResolveFloat restricted to integral values that fit
// without loss; anything larger is missing.
func ResolveInt(root any, path ...any) *int {
	f := ResolveFloat(root, path...)
	if f == nil || *f != math.Trunc(*f) || *f > maxExactInt || *f < -maxExactInt {
		return nil
	}
	i := int(*f)
	return &i
}

// ResolveStrings collects the string elements of the list at path. The
// second return is false when path does not point at a list.
func ResolveStrings(root any, path ...any) ([]string, bool) {
	v, ok := Resolve(root, path...)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
