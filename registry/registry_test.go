package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itbidhan/asterisk/container"
	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/obj"
	"github.com/itbidhan/asterisk/registry"
)

func newTestContainer(t *testing.T, n int) *container.Container[int] {
	t.Helper()
	sortInts := func(a, b *int) int { return *a - *b }
	c, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}
	return c
}

func TestRegistryRegisterLookupStats(t *testing.T) {
	r, err := registry.New(obslog.Nop())
	require.NoError(t, err)

	c := newTestContainer(t, 3)
	defer c.Destroy()

	id, err := r.Register("widgets", c)
	require.NoError(t, err)
	assert.NotEqual(t, id.String(), "")

	_, err = r.Register("widgets", c)
	assert.ErrorIs(t, err, registry.ErrAlreadyExist)

	got, err := r.Lookup("Widgets") // case-insensitive
	require.NoError(t, err)
	assert.Equal(t, c, got)

	stats, err := r.Stats("widgets")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Elements)

	require.NoError(t, r.Check("widgets"))

	require.NoError(t, r.Unregister("widgets"))
	_, err = r.Lookup("widgets")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRegistryComplete(t *testing.T) {
	r, err := registry.New(obslog.Nop())
	require.NoError(t, err)

	c1 := newTestContainer(t, 1)
	defer c1.Destroy()
	c2 := newTestContainer(t, 1)
	defer c2.Destroy()

	_, err = r.Register("alpha-sessions", c1)
	require.NoError(t, err)
	_, err = r.Register("alpha-channels", c2)
	require.NoError(t, err)

	names := r.Complete("alpha-")
	assert.ElementsMatch(t, []string{"alpha-sessions", "alpha-channels"}, names)
}
