package holder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itbidhan/asterisk/holder"
	"github.com/itbidhan/asterisk/obj"
)

func TestHolderReplaceAndAcquire(t *testing.T) {
	h, err := holder.New[string]()
	require.NoError(t, err)

	got, err := h.Acquire()
	require.NoError(t, err)
	assert.Nil(t, got)

	o1, err := obj.Alloc("one", nil)
	require.NoError(t, err)

	prev, err := h.Replace(o1)
	require.NoError(t, err)
	assert.Nil(t, prev)
	o1.Release() // holder now holds the only reference

	a, err := h.Acquire()
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "one", *a.Get())
	refcount, _ := a.Bump(0)
	assert.Equal(t, int64(2), refcount, "holder's own ref plus the acquired one")
	a.Release()

	o2, err := obj.Alloc("two", nil)
	require.NoError(t, err)
	prev, err = h.Replace(o2)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "one", *prev.Get())
	prev.Release() // caller now owns the previous reference

	require.NoError(t, h.Release())
	got, err = h.Acquire()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHolderReplaceAndReleaseDropsPrevious(t *testing.T) {
	h, err := holder.New[int]()
	require.NoError(t, err)

	var destroyed bool
	o1, err := obj.Alloc(1, func(*int) { destroyed = true })
	require.NoError(t, err)
	_, err = h.Replace(o1)
	require.NoError(t, err)
	o1.Release() // holder now holds the only remaining reference

	o2, err := obj.Alloc(2, nil)
	require.NoError(t, err)
	require.NoError(t, h.ReplaceAndRelease(o2))

	assert.True(t, destroyed, "the previous object must have been released")
}
