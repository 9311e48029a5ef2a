// Package holder implements the global holder: a named slot that owns
// at most one strong reference to an object, with atomic
// replace/release semantics.
package holder

import (
	"github.com/itbidhan/asterisk/lock"
	"github.com/itbidhan/asterisk/obj"
)

// Holder is a latch containing an rwlock and one nullable owning
// reference. Any reader observing a non-null slot sees a live object
// with its refcount incremented on that reader's behalf.
type Holder[T any] struct {
	lk   lock.Locker
	held *obj.Handle[T]
}

// New constructs an empty Holder.
func New[T any]() (*Holder[T], error) {
	lk, err := lock.New(lock.FlavorRWMutex)
	if err != nil {
		return nil, err
	}
	return &Holder[T]{lk: lk}, nil
}

// Release write-locks, drops the stored reference (if any), and
// clears the slot.
func (h *Holder[T]) Release() error {
	if err := h.lk.Lock(lock.ModeWrite); err != nil {
		return err
	}
	defer h.lk.Unlock(lock.ModeWrite)
	h.held.Cleanup()
	h.held = nil
	return nil
}

// Replace write-locks, bumps newObj's refcount (if non-nil), swaps the
// slot, and returns the previous value. Ownership of the returned
// handle transfers to the caller.
func (h *Holder[T]) Replace(newObj *obj.Handle[T]) (*obj.Handle[T], error) {
	if err := h.lk.Lock(lock.ModeWrite); err != nil {
		return nil, err
	}
	defer h.lk.Unlock(lock.ModeWrite)
	if newObj != nil {
		if _, err := newObj.Bump(1); err != nil {
			return nil, err
		}
	}
	prev := h.held
	h.held = newObj
	return prev, nil
}

// ReplaceAndRelease is Replace followed by releasing the returned
// previous object.
func (h *Holder[T]) ReplaceAndRelease(newObj *obj.Handle[T]) error {
	prev, err := h.Replace(newObj)
	if err != nil {
		return err
	}
	prev.Cleanup()
	return nil
}

// Acquire read-locks, bumps the slot's refcount (if non-nil), and
// returns the bumped reference. The caller owns the returned handle.
func (h *Holder[T]) Acquire() (*obj.Handle[T], error) {
	if err := h.lk.Lock(lock.ModeRead); err != nil {
		return nil, err
	}
	defer h.lk.Unlock(lock.ModeRead)
	if h.held == nil {
		return nil, nil
	}
	if _, err := h.held.Bump(1); err != nil {
		return nil, err
	}
	return h.held, nil
}
