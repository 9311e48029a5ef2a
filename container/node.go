package container

import (
	"github.com/itbidhan/asterisk/lock"
	"github.com/itbidhan/asterisk/obj"
)

// newNode allocates a node handle and links its destructor to the
// unlink logic below. Nodes are themselves refcounted objects (mirrors
// astobj2.c's internal_ao2_alloc of a struct ao2_container node). The
// bucket list holds a node's only reference: neither traverse nor
// Iterator takes a node reference, so releasing the bucket's reference
// during an unlink is what runs nodeDestructor.
func newNode[T any](payload *obj.Handle[T], cd *containerData[T], bucketIdx int) (*obj.Handle[nodeData[T]], error) {
	nd := nodeData[T]{
		payload:   payload,
		container: cd,
		bucketIdx: bucketIdx,
	}
	return obj.Alloc(nd, nodeDestructor[T])
}

// nodeDestructor runs when a node's own refcount reaches zero, which
// happens when an unlinking traverse releases the bucket's reference.
// It splices the node out of its bucket's doubly-linked list and
// releases the container's payload reference.
//
// Splicing requires the container's write lock. The destructor calls
// AdjustLevel(ModeWrite, false) on the container's lock, which leaves
// the lock as it is when the unlinking traverse already holds it for
// writing, mirroring hash_ao2_node_destructor's
// adjust_lock(c, OBJ_LOCK... ) dance.
func nodeDestructor[T any](n *nodeData[T]) {
	cd := n.container
	if cd == nil {
		n.payload.Cleanup()
		return
	}

	prevMode, err := cd.lk.AdjustLevel(lock.ModeWrite, false)
	if err == nil {
		defer cd.lk.AdjustLevel(prevMode, false)
	}

	unlinkNodeLocked(cd, n)
	cd.elements.Dec()
	n.payload.Cleanup()
	n.payload = nil
}

// unlinkNodeLocked removes n from its bucket's list. Caller must hold
// the container's write lock (or the container use lock.FlavorNone, in
// which case callers are themselves responsible for serialization).
func unlinkNodeLocked[T any](cd *containerData[T], n *nodeData[T]) {
	b := &cd.buckets[n.bucketIdx]

	if n.prev != nil {
		if pd := n.prev.Get(); pd != nil {
			pd.next = n.next
		}
	} else {
		b.head = n.next
	}

	if n.next != nil {
		if nd := n.next.Get(); nd != nil {
			nd.prev = n.prev
		}
	} else {
		b.tail = n.prev
	}

	n.prev = nil
	n.next = nil
}
