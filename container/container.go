// Package container implements the hash-bucketed associative
// container that is the core data structure of this runtime: a single
// hash implementation that degenerates to an ordered list when
// allocated with one bucket, plus the stateful iterator that walks it.
//
// Container[T] plays the role astobj2.c's struct ao2_container and
// struct ao2_container_hash play together: there is only one concrete
// container kind here (a red-black-tree variant is left out of
// scope), so the "vtable" is collapsed into ordinary methods rather
// than an interface instead of forcing a second code path for a
// single implementor.
package container

import (
	"errors"

	"go.uber.org/atomic"

	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/lock"
	"github.com/itbidhan/asterisk/obj"
)

// DupPolicy controls what happens when an inserted key compares equal
// to an existing node's key under the container's sort function.
type DupPolicy int

const (
	// DupsAllow preserves all equal-key objects in insertion order.
	DupsAllow DupPolicy = iota
	// DupsReject refuses any equal-key insertion.
	DupsReject
	// DupsObjReject refuses only when the payload identity (pointer
	// equality, via IdentityFunc) matches an existing node's.
	DupsObjReject
	// DupsReplace swaps the held payload in the existing node,
	// dropping the new node.
	DupsReplace
)

// InsertPosition selects which end of a bucket new nodes are tried
// against first.
type InsertPosition int

const (
	InsertEnd InsertPosition = iota
	InsertBegin
)

// Options configures a container at allocation time.
type Options struct {
	Insert InsertPosition
	Dups   DupPolicy
	// LockFlavor selects the container's own lock primitive. The
	// default zero value, lock.FlavorNone, means the caller takes
	// full responsibility for synchronizing access (NoLock flags on
	// every call).
	LockFlavor lock.Flavor
	Logger     obslog.Logger
}

// HashFunc computes a container's bucket key for a payload. Containers
// allocated via NewList force this to a constant-zero function.
type HashFunc[T any] func(payload *T) uint64

// SortFunc orders two payloads for insertion and early-termination
// scans. A nil SortFunc means the bucket preserves insertion order and
// DupPolicy never applies (every insert is an append/prepend).
type SortFunc[T any] func(a, b *T) int

// Keyer is implemented by the arg passed to Traverse/Callback/Find
// together with FlagPointer or FlagKey, so traverse can compute the
// single starting bucket directly instead of scanning every bucket.
// An arg that does not implement Keyer falls back to a full scan.
type Keyer interface {
	HashKey() uint64
}

// IdentityFunc reports whether two payloads are the same underlying
// object, for DupsObjReject. NewHash/NewList default this to plain
// pointer equality on the two *T values Link hands it, which
// is exactly "is this the same Handle's payload come around again"
// since a Handle's payload address is stable for its whole lifetime.
type IdentityFunc[T any] func(a, b *T) bool

func defaultIdentity[T any](a, b *T) bool { return a == b }

// MatchFunc is the traversal comparison callback. It returns a
// bitmask of CmpMatch and CmpStop.
type MatchFunc[T any] func(payload *T, arg, data any) int

const (
	// CmpMatch marks the current node as a match.
	CmpMatch = 1 << 0
	// CmpStop tells the traversal to abandon further scanning.
	CmpStop = 1 << 1
)

// LinkFlags controls a single Link call.
type LinkFlags uint32

const (
	// LinkNoLock tells Link the caller already holds the container's
	// write lock (or has arranged an equivalent guarantee).
	LinkNoLock LinkFlags = 1 << iota
)

// TraverseFlags controls a single Traverse/Callback/Find call.
type TraverseFlags uint32

const (
	FlagPointer TraverseFlags = 1 << iota
	FlagKey
	FlagPartialKey
	FlagMultiple
	FlagUnlink
	FlagNoData
	FlagNoLock
	FlagContinue
	FlagDescending
)

// IteratorFlags controls iterator construction.
type IteratorFlags uint32

const (
	IterUnlink IteratorFlags = 1 << iota
	IterDontLock
	IterMalloced
	IterDescending
)

var (
	ErrInvalidHandle = errors.New("container: invalid handle")
	ErrInvalidOption = errors.New("container: invalid option")
	// ErrDuplicate is returned by Link when DupsReject or DupsObjReject
	// refuses an insertion because an equal-key (or equal-identity)
	// element is already linked. Unlike ErrInvalidOption, this is a
	// policy outcome rather than a misconfiguration, and callers that
	// care to distinguish "rejected as a duplicate" from "Link failed
	// for some other reason" should check for it with errors.Is.
	ErrDuplicate = errors.New("container: duplicate")
)

// TraverseResult is what Traverse (and its Callback/Find wrappers)
// returns. A FlagMultiple traversal sets Iter; any other traversal
// sets Object to the match, or leaves it nil when nothing matched.
type TraverseResult[T any] struct {
	Object *obj.Handle[T]
	Iter   *Iterator[T]
}

type bucket[T any] struct {
	head, tail *obj.Handle[nodeData[T]]
}

type nodeData[T any] struct {
	prev, next *obj.Handle[nodeData[T]]
	payload    *obj.Handle[T] // nil means tombstoned
	container  *containerData[T]
	bucketIdx  int
}

type containerData[T any] struct {
	lk      lock.Locker
	hashFn  HashFunc[T]
	sortFn  SortFunc[T]
	matchFn MatchFunc[T]
	ident   IdentityFunc[T]
	opts    Options

	buckets    []bucket[T]
	elements   atomic.Int64
	destroying bool
	logger     obslog.Logger
}

// Container is a strong reference to a hash-bucketed associative
// container. The zero Container is not valid.
type Container[T any] struct {
	h *obj.Handle[containerData[T]]
}

func (c *Container[T]) data() (*containerData[T], error) {
	if c == nil || c.h == nil {
		return nil, ErrInvalidHandle
	}
	cd := c.h.Get()
	if cd == nil {
		return nil, ErrInvalidHandle
	}
	return cd, nil
}

// Count returns the number of live elements.
func (c *Container[T]) Count() int64 {
	cd, err := c.data()
	if err != nil {
		return 0
	}
	return cd.elements.Load()
}

// Retain bumps the container's own refcount, giving the caller a
// second owning reference.
func (c *Container[T]) Retain() (*Container[T], error) {
	if c == nil || c.h == nil {
		return nil, ErrInvalidHandle
	}
	if _, err := c.h.Bump(1); err != nil {
		return nil, err
	}
	return &Container[T]{h: c.h}, nil
}

// Destroy releases the caller's reference to the container. If this
// was the last reference, every remaining element is unlinked (its
// payload released) before the container's own storage is freed,
// exactly as astobj2.c's container destructor does.
func (c *Container[T]) Destroy() {
	if c == nil || c.h == nil {
		return
	}
	c.h.Release()
}

func containerDestructor[T any](cd *containerData[T]) {
	cd.destroying = true
	cd.traverse(FlagUnlink|FlagNoData|FlagMultiple, func(*T, any, any) int { return CmpMatch }, nil, nil)
}
