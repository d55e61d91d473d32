package settings

import (
	"fmt"
	"sort"
)

// CloneValue deep-copies mappings and sequences. Scalars are returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case *Map:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether a and b are structurally equal.
// Integer kinds compare by value, so int(5) equals int64(5).
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok {
			return false
		}
		if av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			x, _ := av.Get(k)
			y, ok := bv.Get(k)
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	if ai, ok := asInt64(a); ok {
		bi, ok := asInt64(b)
		return ok && ai == bi
	}
	return a == b
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

// TypeName names the value model kind of v for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *Map:
		return "mapping"
	case []any:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "integer"
	case float64:
		return "float"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Normalize converts common Go shapes into the value model:
// map[string]any and map[string]string become *Map (keys sorted, since Go maps
// carry no order), []string becomes []any. Nested values are converted too.
// Values already in the model pass through unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case *Map:
		return val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, Normalize(val[k]))
		}
		return m
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, val[k])
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return v
	}
}
