// Package settings models the host application's configuration: an ordered,
// mutable key-value tree that ephemera reads to detect required services and
// later patches with connection facts of the ephemeral instances.
package settings

// Well-known top-level keys read during detection and written by patches.
const (
	// DefaultSectionKey holds the declarative per-provider blocks.
	DefaultSectionKey = "TESTCONTAINERS"

	KeyDatabases           = "DATABASES"
	KeyCaches              = "CACHES"
	KeyCeleryBrokerURL     = "CELERY_BROKER_URL"
	KeyCeleryResultBackend = "CELERY_RESULT_BACKEND"
	KeySessionEngine       = "SESSION_ENGINE"
)

// Settings is the host application's global configuration.
//
// It is owned by the host. ephemera only reads it during detection and
// reconciliation; writes go exclusively through an Applier so every change
// can be restored. Settings is not safe for concurrent mutation.
type Settings struct {
	root *Map
}

// New creates empty settings.
func New() *Settings {
	return &Settings{root: NewMap()}
}

// FromMap wraps an existing top-level map. The map is used in place.
func FromMap(m *Map) *Settings {
	if m == nil {
		m = NewMap()
	}
	return &Settings{root: m}
}

// Root returns the underlying top-level map.
func (s *Settings) Root() *Map {
	return s.root
}

// Get returns a top-level value.
func (s *Settings) Get(key string) (any, bool) {
	return s.root.Get(key)
}

// Has reports whether a top-level key is defined.
func (s *Settings) Has(key string) bool {
	return s.root.Has(key)
}

// Set assigns a top-level value.
func (s *Settings) Set(key string, value any) {
	s.root.Set(key, value)
}

// Delete removes a top-level key.
func (s *Settings) Delete(key string) {
	s.root.Delete(key)
}

// Keys returns the top-level keys in declared order.
func (s *Settings) Keys() []string {
	return s.root.Keys()
}

// Map returns the mapping stored under key, or nil when the key is missing or
// holds something else. Detection code relies on the lenient form: a missing
// or mistyped section simply means "nothing declared".
func (s *Settings) Map(key string) *Map {
	m, _, err := s.root.MapValue(key)
	if err != nil {
		return nil
	}
	return m
}

// String returns the string stored under key, or "" when missing or mistyped.
func (s *Settings) String(key string) string {
	v, _, err := s.root.StringValue(key)
	if err != nil {
		return ""
	}
	return v
}

// Entries returns the mapping entries of a section such as DATABASES or
// CACHES, in declared order. Entries that are not mappings are skipped.
func (s *Settings) Entries(section string) []Entry {
	sec := s.Map(section)
	if sec == nil {
		return nil
	}
	var out []Entry
	sec.Range(func(k string, v any) bool {
		if m, ok := v.(*Map); ok && m != nil {
			out = append(out, Entry{Alias: k, Value: m})
		}
		return true
	})
	return out
}

// Clone returns a deep copy of the settings.
func (s *Settings) Clone() *Settings {
	return &Settings{root: s.root.Clone()}
}

// Entry is one named sub-entry of a section, e.g. DATABASES["default"].
type Entry struct {
	Alias string
	Value *Map
}
