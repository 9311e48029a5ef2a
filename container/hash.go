package container

import (
	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/lock"
	"github.com/itbidhan/asterisk/obj"
)

// NewHash allocates a hash-bucketed container with nBuckets buckets.
// hashFn determines bucket placement; sortFn, if non-nil, orders nodes
// within a bucket and enables DupPolicy and early-termination scans;
// matchFn is the default comparison used by Find. A nil hashFn is
// replaced with a constant-zero function, collapsing to a single
// bucket (see NewList).
func NewHash[T any](nBuckets int, hashFn HashFunc[T], sortFn SortFunc[T], matchFn MatchFunc[T], opts Options) (*Container[T], error) {
	if nBuckets < 1 {
		nBuckets = 1
	}
	if hashFn == nil {
		hashFn = func(*T) uint64 { return 0 }
		nBuckets = 1
	}
	if opts.Logger == nil {
		opts.Logger = obslog.Nop()
	}

	lk, err := lock.New(opts.LockFlavor)
	if err != nil {
		return nil, err
	}

	cd := containerData[T]{
		lk:      lk,
		hashFn:  hashFn,
		sortFn:  sortFn,
		matchFn: matchFn,
		ident:   defaultIdentity[T],
		opts:    opts,
		buckets: make([]bucket[T], nBuckets),
		logger:  opts.Logger,
	}

	h, err := obj.Alloc(cd, containerDestructor[T])
	if err != nil {
		return nil, err
	}
	return &Container[T]{h: h}, nil
}

// NewList allocates a single-bucket container: an ordered list when
// sortFn is given, or a plain insertion-order sequence when it is nil.
// This is the "degenerate hash with one bucket" case rather than a
// distinct implementation.
func NewList[T any](sortFn SortFunc[T], matchFn MatchFunc[T], opts Options) (*Container[T], error) {
	return NewHash[T](1, nil, sortFn, matchFn, opts)
}

func bucketIndex(hash uint64, n int) int {
	if n <= 1 {
		return 0
	}
	return int(hash % uint64(n))
}

// Link inserts payload into the container, bumping its refcount by
// one on success; that reference belongs to the container. It returns
// payload itself on success, so the caller still owns exactly the
// reference it passed in.
func (c *Container[T]) Link(payload *obj.Handle[T], flags LinkFlags) (*obj.Handle[T], error) {
	cd, err := c.data()
	if err != nil {
		return nil, err
	}
	if cd.destroying {
		return nil, ErrInvalidHandle
	}

	locked := flags&LinkNoLock == 0
	if locked {
		if err := cd.lk.Lock(lock.ModeWrite); err != nil {
			return nil, err
		}
		defer cd.lk.Unlock(lock.ModeWrite)
	}

	p := payload.Get()
	if p == nil {
		return nil, ErrInvalidHandle
	}
	idx := bucketIndex(cd.hashFn(p), len(cd.buckets))
	b := &cd.buckets[idx]

	if cd.sortFn != nil {
		for cur := b.head; cur != nil; {
			curData := cur.Get()
			if curData == nil || curData.payload == nil {
				cur = nextNode(cur)
				continue
			}
			curPayload := curData.payload.Get()
			cmp := cd.sortFn(p, curPayload)
			if cmp == 0 {
				switch cd.opts.Dups {
				case DupsReject:
					return nil, ErrDuplicate
				case DupsObjReject:
					if cd.ident != nil && cd.ident(p, curPayload) {
						return nil, ErrDuplicate
					}
				case DupsReplace:
					old := curData.payload
					if _, err := payload.Bump(1); err != nil {
						return nil, err
					}
					curData.payload = payload
					old.Cleanup()
					return payload, nil
				}
			}
			cur = nextNode(cur)
		}
	}

	if _, err := payload.Bump(1); err != nil {
		return nil, err
	}
	node, err := newNode[T](payload, cd, idx)
	if err != nil {
		payload.Release()
		return nil, err
	}

	insertBegin := cd.opts.Insert == InsertBegin
	if cd.sortFn == nil {
		linkAtEnd(b, node, insertBegin)
	} else {
		linkSorted(cd, b, node, p, insertBegin)
	}

	cd.elements.Inc()
	return payload, nil
}

func linkAtEnd[T any](b *bucket[T], node *obj.Handle[nodeData[T]], insertBegin bool) {
	nd := node.Get()
	if insertBegin || b.head == nil {
		nd.next = b.head
		if b.head != nil {
			b.head.Get().prev = node
		}
		b.head = node
		if b.tail == nil {
			b.tail = node
		}
		return
	}
	nd.prev = b.tail
	b.tail.Get().next = node
	b.tail = node
}

// linkSorted inserts node to keep the bucket ordered by cd.sortFn,
// honoring the insertion-position preference when payloads tie.
func linkSorted[T any](cd *containerData[T], b *bucket[T], node *obj.Handle[nodeData[T]], p *T, insertBegin bool) {
	nd := node.Get()
	for cur := b.head; cur != nil; cur = nextNode(cur) {
		curData := cur.Get()
		if curData.payload == nil {
			continue
		}
		cmp := cd.sortFn(p, curData.payload.Get())
		if cmp < 0 || (cmp == 0 && insertBegin) {
			nd.next = cur
			nd.prev = curData.prev
			if curData.prev != nil {
				curData.prev.Get().next = node
			} else {
				b.head = node
			}
			curData.prev = node
			return
		}
	}
	linkAtEnd(b, node, false)
}

// Clone returns a new container with the same shape (bucket count,
// hash/sort/match functions, options) containing a reference to every
// payload currently linked in c. Payloads are not deep-copied; this
// mirrors ao2_container_clone's shallow semantics.
func (c *Container[T]) Clone() (*Container[T], error) {
	cd, err := c.data()
	if err != nil {
		return nil, err
	}

	clone, err := NewHash[T](len(cd.buckets), cd.hashFn, cd.sortFn, cd.matchFn, cd.opts)
	if err != nil {
		return nil, err
	}

	res := cd.traverse(FlagMultiple, func(*T, any, any) int { return CmpMatch }, nil, nil)
	if res.Iter == nil {
		return clone, nil
	}
	defer res.Iter.Destroy()
	for h := res.Iter.Next(); h != nil; h = res.Iter.Next() {
		if _, err := clone.Link(h, 0); err != nil {
			h.Release()
			clone.Destroy()
			return nil, err
		}
		h.Release()
	}
	return clone, nil
}

// Dup is the in-place variant of Clone: it copies every element
// currently linked in src into dest (an already-constructed
// container), honoring LinkNoLock by skipping both containers' own
// locking when the caller has arranged it. When locking itself, Dup
// takes src's read lock before dest's write lock, the order callers
// must respect to avoid deadlock against a concurrent Dup in the
// other direction.
func (dest *Container[T]) Dup(src *Container[T], flags LinkFlags) error {
	srcCD, err := src.data()
	if err != nil {
		return err
	}
	destCD, err := dest.data()
	if err != nil {
		return err
	}

	if flags&LinkNoLock == 0 {
		if err := srcCD.lk.Lock(lock.ModeRead); err != nil {
			return err
		}
		defer srcCD.lk.Unlock(lock.ModeRead)
		if err := destCD.lk.Lock(lock.ModeWrite); err != nil {
			return err
		}
		defer destCD.lk.Unlock(lock.ModeWrite)
	}

	res := srcCD.traverse(FlagMultiple|FlagNoLock, func(*T, any, any) int { return CmpMatch }, nil, nil)
	if res.Iter == nil {
		return nil
	}
	defer res.Iter.Destroy()
	for h := res.Iter.Next(); h != nil; h = res.Iter.Next() {
		if _, err := dest.Link(h, LinkNoLock); err != nil {
			h.Release()
			return err
		}
		h.Release()
	}
	return nil
}

// Check verifies the container's own element counter against a full
// scan, returning an error if they disagree. It is a diagnostic aid
// (exposed through cmd/ao2ctl's check subcommand), not something
// normal traversal paths call.
func (c *Container[T]) Check() error {
	cd, err := c.data()
	if err != nil {
		return err
	}
	if err := cd.lk.Lock(lock.ModeRead); err != nil {
		return err
	}
	defer cd.lk.Unlock(lock.ModeRead)

	var counted int64
	for i := range cd.buckets {
		for cur := firstLive[T](cd.buckets[i].head); cur != nil; cur = firstLive[T](nextNode(cur)) {
			counted++
		}
	}
	if counted != cd.elements.Load() {
		return ErrInvalidHandle
	}
	return nil
}

// nextNode returns cur's next link, or nil if cur itself is nil or
// invalid.
func nextNode[T any](cur *obj.Handle[nodeData[T]]) *obj.Handle[nodeData[T]] {
	if cur == nil {
		return nil
	}
	nd := cur.Get()
	if nd == nil {
		return nil
	}
	return nd.next
}
