package settings

import "errors"

// absentMarker records that a key did not exist before it was first patched.
type absentMarker struct{}

// Absent is the snapshot sentinel for keys that were undefined before the
// session touched them. Restoring it removes the key.
var Absent any = absentMarker{}

// ErrNilSettings is returned when an Applier is given no settings to patch.
var ErrNilSettings = errors.New("settings: nil settings")

// Snapshot holds the pre-session value of every top-level key a patch touched.
// Once a key is recorded, its value is never overwritten until the snapshot is
// cleared, so restoration always reflects the true pre-session state.
type Snapshot struct {
	keys   []string
	values map[string]any
}

func newSnapshot() *Snapshot {
	return &Snapshot{values: make(map[string]any)}
}

// record stores the current value of key unless it was already recorded.
func (s *Snapshot) record(key string, settings *Settings) {
	if _, ok := s.values[key]; ok {
		return
	}
	if v, ok := settings.Get(key); ok {
		s.values[key] = v
	} else {
		s.values[key] = Absent
	}
	s.keys = append(s.keys, key)
}

// Value returns the recorded value for key, which may be Absent.
func (s *Snapshot) Value(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns recorded keys in first-touch order.
func (s *Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of recorded keys.
func (s *Snapshot) Len() int {
	return len(s.keys)
}

// Applier applies settings patches and restores the pre-session state.
// One Applier serves exactly one session.
type Applier struct {
	snapshot *Snapshot
}

// NewApplier creates an Applier with an empty snapshot.
func NewApplier() *Applier {
	return &Applier{snapshot: newSnapshot()}
}

// Apply writes patch into settings.
//
// Each top-level key is snapshotted before its first modification. A mapping
// patched onto an existing mapping is deep-merged into a copy of the existing
// value; anything else replaces the key outright. The original value object is
// never mutated, which is what makes Restore exact.
func (a *Applier) Apply(s *Settings, patch *Map) error {
	if s == nil {
		return ErrNilSettings
	}
	patch.Range(func(key string, value any) bool {
		a.snapshot.record(key, s)

		if pm, ok := value.(*Map); ok {
			if current, ok := s.Get(key); ok {
				if cm, ok := current.(*Map); ok && cm != nil {
					merged := cm.Clone()
					Merge(merged, pm)
					s.Set(key, merged)
					return true
				}
			}
		}
		s.Set(key, CloneValue(value))
		return true
	})
	return nil
}

// Restore writes every snapshotted key back to its recorded value, removing
// keys that were absent, then clears the snapshot. It only touches keys that
// were actually snapshotted, so it is safe after a partial Apply or none.
func (a *Applier) Restore(s *Settings) {
	if s == nil {
		return
	}
	for _, key := range a.snapshot.keys {
		v := a.snapshot.values[key]
		if v == Absent {
			s.Delete(key)
			continue
		}
		s.Set(key, v)
	}
	a.snapshot = newSnapshot()
}

// Touched returns the keys patched so far, in first-touch order.
func (a *Applier) Touched() []string {
	return a.snapshot.Keys()
}

// Snapshot exposes the current snapshot for inspection.
func (a *Applier) Snapshot() *Snapshot {
	return a.snapshot
}
