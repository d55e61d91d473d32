package settings

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMerge_DistinctNestedKeysArePreserved(t *testing.T) {
	first := MapOf("DATABASES", MapOf("default", MapOf("HOST", "h1")))
	second := MapOf("DATABASES", MapOf("replica", MapOf("HOST", "h2")))

	out := Merged(first, second)

	dbs, _, err := out.MapValue("DATABASES")
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "replica"}, dbs.Keys())
}

func TestMerge_SameNestedKeyLaterWins(t *testing.T) {
	first := MapOf("CACHES", MapOf("default", MapOf("LOCATION", "redis://a", "TIMEOUT", 10)))
	second := MapOf("CACHES", MapOf("default", MapOf("LOCATION", "redis://b")))

	out := Merged(first, second)

	want := MapOf("CACHES", MapOf("default", MapOf("LOCATION", "redis://b", "TIMEOUT", 10)))
	assert.True(t, out.Equal(want), "got %s", out)
}

func TestMerge_ScalarReplacesMappingAndViceVersa(t *testing.T) {
	dst := MapOf("a", MapOf("x", 1), "b", "scalar")
	Merge(dst, MapOf("a", "now-scalar", "b", MapOf("y", 2)))

	a, _ := dst.Get("a")
	assert.Equal(t, "now-scalar", a)
	b, _, err := dst.MapValue("b")
	require.NoError(t, err)
	assert.True(t, b.Equal(MapOf("y", 2)))
}

func TestMerge_SequencesAreReplaced(t *testing.T) {
	dst := MapOf("hosts", []any{"a", "b"})
	Merge(dst, MapOf("hosts", []any{"c"}))

	v, _ := dst.Get("hosts")
	assert.Equal(t, []any{"c"}, v)
}

func TestMerge_DoesNotAliasSource(t *testing.T) {
	src := MapOf("a", MapOf("x", 1))
	dst := NewMap()
	Merge(dst, src)

	inner, _, _ := src.MapValue("a")
	inner.Set("x", 2)

	got, _, _ := dst.MapValue("a")
	x, _ := got.Get("x")
	assert.Equal(t, 1, x)
}

func TestMerged_LeavesInputsUntouched(t *testing.T) {
	a := MapOf("k", MapOf("x", 1))
	b := MapOf("k", MapOf("y", 2))
	aBefore, bBefore := a.Clone(), b.Clone()

	_ = Merged(a, b)

	assert.True(t, a.Equal(aBefore))
	assert.True(t, b.Equal(bBefore))
}

func TestOverlay_IsShallow(t *testing.T) {
	base := MapOf("image", "X", "username", "u", "environment", MapOf("A", "1"))
	override := MapOf("username", "v2", "dbname", "d", "environment", MapOf("B", "2"))

	out := Overlay(base, override)

	assert.Equal(t, []string{"image", "username", "environment", "dbname"}, out.Keys())
	env, _, _ := out.MapValue("environment")
	assert.True(t, env.Equal(MapOf("B", "2")))
}

// genTree draws a small nested mapping with keys from a tiny alphabet so that
// collisions between independently drawn trees are frequent.
func genTree(depth int) *rapid.Generator[*Map] {
	return rapid.Custom(func(t *rapid.T) *Map {
		m := NewMap()
		n := rapid.IntRange(0, 4).Draw(t, "len")
		for i := 0; i < n; i++ {
			key := rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, "key")
			if depth > 0 && rapid.Bool().Draw(t, "nested") {
				m.Set(key, genTree(depth-1).Draw(t, "child"))
				continue
			}
			m.Set(key, rapid.OneOf(
				rapid.Map(rapid.IntRange(0, 9), func(i int) any { return i }),
				rapid.Map(rapid.StringMatching(`[xyz]{1,3}`), func(s string) any { return s }),
			).Draw(t, "leaf"))
		}
		return m
	})
}

func TestMerge_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genTree(2).Draw(t, "a")
		b := genTree(2).Draw(t, "b")

		out := Merged(a, b)

		// Every leaf of b is visible at the same path in the result.
		var check func(path string, src, dst *Map)
		check = func(path string, src, dst *Map) {
			src.Range(func(k string, v any) bool {
				got, ok := dst.Get(k)
				if !ok {
					t.Fatalf("%s.%s missing after merge", path, k)
				}
				if sm, ok := v.(*Map); ok {
					dm, ok := got.(*Map)
					if !ok {
						t.Fatalf("%s.%s: expected mapping, got %s", path, k, TypeName(got))
					}
					check(fmt.Sprintf("%s.%s", path, k), sm, dm)
					return true
				}
				if !Equal(v, got) {
					t.Fatalf("%s.%s: want %v, got %v", path, k, v, got)
				}
				return true
			})
		}
		check("", b, out)

		// Merging is idempotent for the later source.
		again := Merged(out, b)
		if !again.Equal(out) {
			t.Fatalf("merge not idempotent: %s vs %s", again, out)
		}

		// Keys of a that b does not touch survive.
		for _, k := range a.Keys() {
			if !b.Has(k) && !out.Has(k) {
				t.Fatalf("key %s of first source lost", k)
			}
		}
	})
}
