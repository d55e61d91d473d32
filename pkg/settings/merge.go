package settings

// Merge deep-merges src into dst.
//
// For every key of src, in src's order:
//   - both values are mappings: merged recursively
//   - otherwise: src wins, and its value is cloned into dst
//
// Sequences are replaced rather than concatenated. A nil src is a no-op.
func Merge(dst, src *Map) {
	if src == nil {
		return
	}
	for _, key := range src.keys {
		sv := src.vals[key]
		if sm, ok := sv.(*Map); ok {
			if dv, exists := dst.vals[key]; exists {
				if dm, ok := dv.(*Map); ok && dm != nil && sm != nil {
					Merge(dm, sm)
					continue
				}
			}
		}
		dst.Set(key, CloneValue(sv))
	}
}

// Merged returns a fresh deep merge of the given maps, later maps winning.
// None of the inputs is modified.
func Merged(maps ...*Map) *Map {
	out := NewMap()
	for _, m := range maps {
		Merge(out, m)
	}
	return out
}

// Overlay returns a shallow merge: base's entries followed by override's,
// override winning on key collisions. Values are cloned, nested mappings are
// replaced rather than merged.
func Overlay(base, override *Map) *Map {
	out := NewMap()
	base.Range(func(k string, v any) bool {
		out.Set(k, CloneValue(v))
		return true
	})
	override.Range(func(k string, v any) bool {
		out.Set(k, CloneValue(v))
		return true
	})
	return out
}
