package container

import (
	"github.com/itbidhan/asterisk/obj"
)

// Iterator yields each element collected by a FlagMultiple traversal,
// one call to Next at a time. It owns one reference per collected
// element and must be released with Destroy once the caller is done,
// whether or not every element was consumed.
type Iterator[T any] struct {
	items []*obj.Handle[T]
	pos   int
}

func newIterator[T any](items []*obj.Handle[T]) *Iterator[T] {
	return &Iterator[T]{items: items}
}

// Next returns the next element, or nil once exhausted. The caller
// owns the returned handle and must release it.
func (it *Iterator[T]) Next() *obj.Handle[T] {
	if it == nil || it.pos >= len(it.items) {
		return nil
	}
	h := it.items[it.pos]
	it.pos++
	return h
}

// Destroy releases every remaining (unconsumed) element reference.
// Calling Destroy after exhausting the iterator via Next is a cheap
// no-op.
func (it *Iterator[T]) Destroy() {
	if it == nil {
		return
	}
	for _, h := range it.items[it.pos:] {
		h.Cleanup()
	}
	it.items = nil
	it.pos = 0
}
