package settings

import (
	"fmt"
	"strings"
)

// Map is an insertion-ordered mapping from string keys to values.
//
// Values belong to a small closed model:
//   - scalars: nil, bool, int, int64, float64, string
//   - sequences: []any
//   - mappings: *Map
//
// Key order is the order in which keys were first set. Overwriting an
// existing key keeps its position; deleting and re-adding moves it to the end.
// The zero value is not usable, use NewMap or MapOf.
type Map struct {
	keys []string
	vals map[string]any
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]any)}
}

// MapOf builds a Map from alternating key/value arguments.
// It panics if the argument count is odd or a key is not a string, so it is
// meant for literals in code and tests.
//
// Example:
//
//	m := settings.MapOf("ENGINE", "django.db.backends.postgresql", "NAME", "app")
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("settings.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("settings.MapOf: key at position %d is %T, not string", i, kv[i]))
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.vals[key]
	return ok
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Set stores value under key.
func (m *Map) Set(key string, value any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Delete removes key. Deleting a missing key is a no-op.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in declared order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for every entry in declared order until fn returns false.
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Mappings and sequences are copied recursively,
// scalars are shared.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		keys: make([]string, len(m.keys)),
		vals: make(map[string]any, len(m.vals)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.vals {
		out.vals[k] = CloneValue(v)
	}
	return out
}

// MapValue returns the mapping stored under key.
// present is false when the key is missing; an error is returned when the key
// holds something other than a mapping.
func (m *Map) MapValue(key string) (value *Map, present bool, err error) {
	raw, ok := m.Get(key)
	if !ok {
		return nil, false, nil
	}
	sub, ok := raw.(*Map)
	if !ok {
		return nil, true, fmt.Errorf("%s: expected a mapping, got %s", key, TypeName(raw))
	}
	return sub, true, nil
}

// StringValue returns the string stored under key.
func (m *Map) StringValue(key string) (value string, present bool, err error) {
	raw, ok := m.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s: expected a string, got %s", key, TypeName(raw))
	}
	return s, true, nil
}

// BoolValue returns the bool stored under key.
func (m *Map) BoolValue(key string) (value bool, present bool, err error) {
	raw, ok := m.Get(key)
	if !ok {
		return false, false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, true, fmt.Errorf("%s: expected a bool, got %s", key, TypeName(raw))
	}
	return b, true, nil
}

// Equal reports whether two maps hold structurally equal values.
// Key order is not significant.
func (m *Map) Equal(other *Map) bool {
	return Equal(m, other)
}

// String renders the map in a compact, ordered form for logs and test output.
func (m *Map) String() string {
	var sb strings.Builder
	writeValue(&sb, m)
	return sb.String()
}

func writeValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case *Map:
		if val == nil {
			sb.WriteString("{}")
			return
		}
		sb.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			writeValue(sb, val.vals[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteByte(']')
	case string:
		fmt.Fprintf(sb, "%q", val)
	default:
		fmt.Fprintf(sb, "%v", val)
	}
}
