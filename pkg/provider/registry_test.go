package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedProvider struct {
	Redis
	kind Kind
}

func (p namedProvider) Name() Kind { return p.kind }

func TestDefaultRegistry_Order(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []Kind{KindPostgres, KindMySQL, KindRedis}, r.Kinds())
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	p, ok := r.Lookup("redis")
	require.True(t, ok)
	assert.Equal(t, KindRedis, p.Name())

	_, ok = r.Lookup("mongo")
	assert.False(t, ok)

	_, err := r.Get("mongo")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewRegistry_Rejects(t *testing.T) {
	_, err := NewRegistry(Postgres{}, namedProvider{kind: KindPostgres})
	assert.ErrorContains(t, err, "duplicate kind")

	_, err = NewRegistry(namedProvider{kind: ""})
	assert.ErrorContains(t, err, "empty name")

	_, err = NewRegistry(nil)
	assert.ErrorContains(t, err, "nil provider")
}

func TestRegistry_ProvidersIsACopy(t *testing.T) {
	r := DefaultRegistry()
	ps := r.Providers()
	ps[0] = namedProvider{kind: "other"}

	assert.Equal(t, KindPostgres, r.Providers()[0].Name())
}
