package container_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itbidhan/asterisk/container"
	"github.com/itbidhan/asterisk/obj"
)

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func sortStrings(a, b *string) int { return strings.Compare(*a, *b) }

func matchExact(payload *string, arg, _ any) int {
	if *payload == arg.(string) {
		return container.CmpMatch | container.CmpStop
	}
	return 0
}

// 4 buckets, lexicographic sort, DupsAllow, five fruit names; every
// element must be retrievable by Find and the total count must be
// five.
func TestHashInsertAndCount(t *testing.T) {
	c, err := container.NewHash[string](4,
		func(s *string) uint64 { return hashString(*s) },
		sortStrings, matchExact, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer c.Destroy()

	names := []string{"apple", "ant", "banana", "berry", "cherry"}
	for _, n := range names {
		h, err := obj.Alloc(n, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}

	assert.Equal(t, int64(5), c.Count())

	for _, n := range names {
		found, err := c.Find(0, n)
		require.NoError(t, err)
		require.NotNil(t, found, "expected to find %q", n)
		assert.Equal(t, n, *found.Get())
		found.Release()
	}
}

// DupsReplace: linking "k" twice with different values must leave
// exactly one element holding the second value.
func TestHashDupsReplace(t *testing.T) {
	type kv struct {
		key, val string
	}
	sortByKey := func(a, b *kv) int { return strings.Compare(a.key, b.key) }
	match := func(p *kv, arg, _ any) int {
		if p.key == arg.(string) {
			return container.CmpMatch | container.CmpStop
		}
		return 0
	}

	c, err := container.NewList[kv](sortByKey, match, container.Options{Dups: container.DupsReplace})
	require.NoError(t, err)
	defer c.Destroy()

	h1, err := obj.Alloc(kv{"k", "v1"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h1, 0)
	require.NoError(t, err)
	h1.Release()

	h2, err := obj.Alloc(kv{"k", "v2"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h2, 0)
	require.NoError(t, err)
	h2.Release()

	assert.Equal(t, int64(1), c.Count())
	found, err := c.Find(0, "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "v2", found.Get().val)
	found.Release()
}

// DupsReject: linking "k" a second time must fail with ErrDuplicate and
// leave the first element as the only one stored.
func TestHashDupsReject(t *testing.T) {
	type kv struct {
		key, val string
	}
	sortByKey := func(a, b *kv) int { return strings.Compare(a.key, b.key) }
	match := func(p *kv, arg, _ any) int {
		if p.key == arg.(string) {
			return container.CmpMatch | container.CmpStop
		}
		return 0
	}

	c, err := container.NewList[kv](sortByKey, match, container.Options{Dups: container.DupsReject})
	require.NoError(t, err)
	defer c.Destroy()

	h1, err := obj.Alloc(kv{"k", "v1"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h1, 0)
	require.NoError(t, err)
	h1.Release()

	h2, err := obj.Alloc(kv{"k", "v2"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h2, 0)
	assert.ErrorIs(t, err, container.ErrDuplicate)
	h2.Release()

	assert.Equal(t, int64(1), c.Count())
	found, err := c.Find(0, "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "v1", found.Get().val)
	found.Release()
}

// DupsObjReject: a second Link of the very same handle for an
// already-linked key must fail with ErrDuplicate, but linking a
// different handle under the same key (a distinct payload identity)
// succeeds and the two coexist.
func TestHashDupsObjReject(t *testing.T) {
	type kv struct {
		key, val string
	}
	sortByKey := func(a, b *kv) int { return strings.Compare(a.key, b.key) }
	match := func(p *kv, arg, _ any) int {
		if p.key == arg.(string) {
			return container.CmpMatch
		}
		return 0
	}

	c, err := container.NewList[kv](sortByKey, match, container.Options{Dups: container.DupsObjReject})
	require.NoError(t, err)
	defer c.Destroy()

	h1, err := obj.Alloc(kv{"k", "v1"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h1, 0)
	require.NoError(t, err)

	_, err = c.Link(h1, 0)
	assert.ErrorIs(t, err, container.ErrDuplicate)
	h1.Release()

	h2, err := obj.Alloc(kv{"k", "v2"}, nil)
	require.NoError(t, err)
	_, err = c.Link(h2, 0)
	require.NoError(t, err)
	h2.Release()

	assert.Equal(t, int64(2), c.Count())
}

// Iterator-with-unlink: ten integers, traverse with FlagMultiple and
// FlagUnlink selecting only the odd ones; the returned iterator must
// yield exactly those five and the container must retain the other
// five.
func TestHashIteratorUnlinkOdds(t *testing.T) {
	sortInts := func(a, b *int) int { return *a - *b }
	c, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer c.Destroy()

	for i := 0; i < 10; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}
	require.EqualValues(t, 10, c.Count())

	isOdd := func(p *int, _, _ any) int {
		if *p%2 != 0 {
			return container.CmpMatch
		}
		return 0
	}

	it, err := c.CallbackMultiple(container.FlagUnlink, isOdd, nil)
	require.NoError(t, err)
	require.NotNil(t, it)

	var got []int
	for h := it.Next(); h != nil; h = it.Next() {
		got = append(got, *h.Get())
		h.Release()
	}
	it.Destroy()

	sort.Ints(got)
	assert.Equal(t, []int{1, 3, 5, 7, 9}, got)
	assert.EqualValues(t, 5, c.Count())
}

// Clone: seven payloads, unlink three from the original; the clone
// (taken before the unlink) must still hold all seven.
func TestHashClonePreservesSnapshot(t *testing.T) {
	sortInts := func(a, b *int) int { return *a - *b }
	c, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer c.Destroy()

	for i := 0; i < 7; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}

	clone, err := c.Clone()
	require.NoError(t, err)
	defer clone.Destroy()

	lessThan3 := func(p *int, _, _ any) int {
		if *p < 3 {
			return container.CmpMatch
		}
		return 0
	}
	it, err := c.CallbackMultiple(container.FlagUnlink, lessThan3, nil)
	require.NoError(t, err)
	it.Destroy()

	assert.EqualValues(t, 4, c.Count())
	assert.EqualValues(t, 7, clone.Count())
}

// Multiple-return: five elements, MULTIPLE callback over all of them,
// the iterator must yield all five and then nil.
func TestHashCallbackMultipleYieldsAllThenNil(t *testing.T) {
	sortInts := func(a, b *int) int { return *a - *b }
	c, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer c.Destroy()

	for i := 0; i < 5; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}

	matchAll := func(*int, any, any) int { return container.CmpMatch }
	it, err := c.CallbackMultiple(0, matchAll, nil)
	require.NoError(t, err)

	count := 0
	for h := it.Next(); h != nil; h = it.Next() {
		count++
		h.Release()
	}
	assert.Equal(t, 5, count)
	assert.Nil(t, it.Next())
	it.Destroy()
}

func TestHashDupCopiesSourceIntoExistingDest(t *testing.T) {
	sortInts := func(a, b *int) int { return *a - *b }
	src, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer src.Destroy()
	for i := 0; i < 3; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = src.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}

	dest, err := container.NewList[int](sortInts, nil, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer dest.Destroy()
	h, err := obj.Alloc(100, nil)
	require.NoError(t, err)
	_, err = dest.Link(h, 0)
	require.NoError(t, err)
	h.Release()

	require.NoError(t, dest.Dup(src, 0))
	assert.EqualValues(t, 4, dest.Count())
	assert.EqualValues(t, 3, src.Count())
}

// wrongBucketKey deliberately hashes to bucket 0 regardless of the
// value it is searching for, so FlagKey alone only ever inspects
// bucket 0; FlagContinue must wrap the ring to find a value actually
// stored elsewhere.
type wrongBucketKey struct {
	want int
}

func (wrongBucketKey) HashKey() uint64 { return 0 }

func TestHashContinueWrapsRing(t *testing.T) {
	hashFn := func(i *int) uint64 { return uint64(*i) }
	match := func(p *int, arg, _ any) int {
		if *p == arg.(wrongBucketKey).want {
			return container.CmpMatch | container.CmpStop
		}
		return 0
	}
	c, err := container.NewHash[int](4, hashFn, nil, match, container.Options{Dups: container.DupsAllow})
	require.NoError(t, err)
	defer c.Destroy()

	for i := 0; i < 8; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}

	key := wrongBucketKey{want: 6} // lands in bucket 2, key hashes to bucket 0
	found, err := c.Callback(container.FlagKey, match, key)
	require.NoError(t, err)
	assert.Nil(t, found, "without CONTINUE the search must stay inside bucket 0")

	found, err = c.Callback(container.FlagKey|container.FlagContinue, match, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 6, *found.Get())
	found.Release()
}

func TestHashCheckSucceeds(t *testing.T) {
	sortInts := func(a, b *int) int { return *a - *b }
	c, err := container.NewList[int](sortInts, nil, container.Options{})
	require.NoError(t, err)
	defer c.Destroy()

	for i := 0; i < 3; i++ {
		h, err := obj.Alloc(i, nil)
		require.NoError(t, err)
		_, err = c.Link(h, 0)
		require.NoError(t, err)
		h.Release()
	}
	assert.NoError(t, c.Check())
}
