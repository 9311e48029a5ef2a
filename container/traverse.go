package container

import (
	"github.com/facebookgo/stackerr"

	"github.com/itbidhan/asterisk/lock"
	"github.com/itbidhan/asterisk/obj"
)

// firstLive returns the first non-tombstoned node starting at n,
// advancing forward.
func firstLive[T any](n *obj.Handle[nodeData[T]]) *obj.Handle[nodeData[T]] {
	for n != nil {
		nd := n.Get()
		if nd == nil {
			return nil
		}
		if nd.payload != nil {
			return n
		}
		n = nd.next
	}
	return nil
}

func prevNode[T any](cur *obj.Handle[nodeData[T]]) *obj.Handle[nodeData[T]] {
	if cur == nil {
		return nil
	}
	nd := cur.Get()
	if nd == nil {
		return nil
	}
	return nd.prev
}

// traverse is the single algorithm behind Traverse, Callback,
// CallbackData, Find and the container's own destructor, mirroring
// hash_ao2_callback: pick a starting bucket (the object's own bucket
// when FlagPointer/FlagKey select one, otherwise every bucket),
// optionally descend instead of ascend, capture the next node before
// acting on the current one so unlinking the current node does not
// break the walk, and apply match to each live payload. The walk takes
// no reference on the nodes themselves; it relies on the container
// lock it holds for the whole scan.
func (cd *containerData[T]) traverse(flags TraverseFlags, match MatchFunc[T], arg, data any) TraverseResult[T] {
	if match == nil {
		match = cd.matchFn
	}

	locked := flags&FlagNoLock == 0
	wantMode := lock.ModeRead
	if flags&FlagUnlink != 0 {
		wantMode = lock.ModeWrite
	}
	if locked {
		if err := cd.lk.Lock(wantMode); err != nil {
			cd.logger.Errorf("container: traverse failed to acquire lock: %s", stackerr.Wrap(err))
			return TraverseResult[T]{}
		}
		defer cd.lk.Unlock(wantMode)
	}

	startBucket, endBucket := 0, len(cd.buckets)-1
	narrowed := false
	if flags&(FlagPointer|FlagKey) != 0 && arg != nil {
		if hk, ok := arg.(Keyer); ok {
			idx := bucketIndex(hk.HashKey(), len(cd.buckets))
			startBucket, endBucket = idx, idx
			narrowed = true
		}
	}

	descending := flags & FlagDescending != 0
	var collected []*obj.Handle[T]
	var single *obj.Handle[T]

	visitBucket := func(idx int) bool {
		b := &cd.buckets[idx]
		var cur *obj.Handle[nodeData[T]]
		if descending {
			cur = b.tail
			for cur != nil && cur.Get() != nil && cur.Get().payload == nil {
				cur = prevNode[T](cur)
			}
		} else {
			cur = firstLive[T](b.head)
		}

		for cur != nil {
			nd := cur.Get()
			if nd == nil {
				break
			}
			payloadHandle := nd.payload
			if payloadHandle == nil {
				if descending {
					cur = prevNode[T](cur)
				} else {
					cur = firstLive[T](nd.next)
				}
				continue
			}
			payloadHandle.Bump(1)
			p := payloadHandle.Get()

			res := 0
			if match != nil {
				res = match(p, arg, data)
			} else {
				res = CmpMatch
			}

			var nextCur *obj.Handle[nodeData[T]]
			if descending {
				nextCur = prevNode[T](cur)
			} else {
				nextCur = firstLive[T](nd.next)
			}

			if res&CmpMatch != 0 {
				if flags&FlagUnlink != 0 {
					// Releasing the bucket's own reference to the node
					// drives its refcount to zero (nothing else holds
					// a node handle), which runs nodeDestructor: the
					// actual splice-out-of-the-bucket-list and
					// payload-release happen there.
					cur.Release()
				}
				if flags&FlagNoData == 0 {
					if flags&FlagMultiple != 0 {
						collected = append(collected, payloadHandle)
					} else {
						single = payloadHandle
					}
				} else {
					payloadHandle.Release()
				}
			} else {
				payloadHandle.Release()
			}

			if res&CmpStop != 0 {
				return false
			}
			cur = nextCur
			if single != nil && flags&FlagMultiple == 0 {
				return false
			}
		}
		return true
	}

	// A key/pointer-scoped search normally visits only its one computed
	// bucket. CONTINUE asks for the ring to keep turning past that
	// bucket, wrapping back around to bucket zero, until the starting
	// bucket would be visited a second time.
	if narrowed && flags&FlagContinue != 0 && len(cd.buckets) > 1 {
		n := len(cd.buckets)
		for i := 0; i < n; i++ {
			if !visitBucket((startBucket + i) % n) {
				break
			}
		}
	} else if descending {
		for i := endBucket; i >= startBucket; i-- {
			if !visitBucket(i) {
				break
			}
		}
	} else {
		for i := startBucket; i <= endBucket; i++ {
			if !visitBucket(i) {
				break
			}
		}
	}

	if flags&FlagMultiple != 0 {
		it := newIterator(collected)
		return TraverseResult[T]{Iter: it}
	}
	return TraverseResult[T]{Object: single}
}

// Traverse walks the container applying match to each live payload.
// The caller owns every handle returned (Object or, for FlagMultiple,
// each element the Iterator yields) and must release it.
func (c *Container[T]) Traverse(flags TraverseFlags, match MatchFunc[T], arg, data any) (TraverseResult[T], error) {
	cd, err := c.data()
	if err != nil {
		return TraverseResult[T]{}, err
	}
	return cd.traverse(flags, match, arg, data), nil
}

// Callback is Traverse without FlagMultiple, returning a single match
// or nil.
func (c *Container[T]) Callback(flags TraverseFlags, match MatchFunc[T], arg any) (*obj.Handle[T], error) {
	res, err := c.Traverse(flags&^FlagMultiple, match, arg, nil)
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

// CallbackData is Callback with an extra opaque data value forwarded
// to match, matching ao2_callback_data's signature in the original.
func (c *Container[T]) CallbackData(flags TraverseFlags, match MatchFunc[T], arg, data any) (*obj.Handle[T], error) {
	res, err := c.Traverse(flags&^FlagMultiple, match, arg, data)
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

// CallbackMultiple is Traverse with FlagMultiple forced on, returning
// an Iterator over every match.
func (c *Container[T]) CallbackMultiple(flags TraverseFlags, match MatchFunc[T], arg any) (*Iterator[T], error) {
	res, err := c.Traverse(flags|FlagMultiple, match, arg, nil)
	if err != nil {
		return nil, err
	}
	return res.Iter, nil
}

// Find looks up arg using the container's own matchFn (supplied at
// construction), the convenience lookup astobj2.c calls cmp_fn and
// reserves specifically for ao2_find.
func (c *Container[T]) Find(flags TraverseFlags, arg any) (*obj.Handle[T], error) {
	cd, err := c.data()
	if err != nil {
		return nil, err
	}
	if cd.matchFn == nil {
		return nil, ErrInvalidOption
	}
	res := cd.traverse(flags&^FlagMultiple, cd.matchFn, arg, nil)
	return res.Object, nil
}
