// Package lock implements the per-object lock flavors used throughout
// the runtime: none, a plain mutex, and a reader/writer lock that
// supports the dynamic lock-level adjustment protocol the hash
// container needs mid-traversal.
package lock

import (
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// Mode selects the acquisition primitive. ModeMutex means
// "mutex-equivalent": exclusive. Mutex- and none-flavored objects
// accept every mode and ignore it; an rwlock-flavored object accepts
// only Read and Write.
type Mode int

const (
	ModeMutex Mode = iota
	ModeWrite
	ModeRead
)

func (m Mode) String() string {
	switch m {
	case ModeMutex:
		return "mutex"
	case ModeWrite:
		return "write"
	case ModeRead:
		return "read"
	default:
		return "invalid"
	}
}

// Flavor is the per-object choice of lock primitive, fixed at
// allocation.
type Flavor int

const (
	FlavorNone Flavor = iota
	FlavorMutex
	FlavorRWMutex
)

// ErrInvalidOption is returned when a Mode is not legal for a given
// Flavor, or when an unknown Flavor is requested from New.
var ErrInvalidOption = errors.New("lock: invalid option")

// Locker is the lock surface every allocated object carries. All three
// flavors implement it uniformly so callers never branch on flavor.
type Locker interface {
	Lock(mode Mode) error
	TryLock(mode Mode) (bool, error)
	Unlock(mode Mode) error
	// AdjustLevel transiently releases and re-acquires the lock in
	// mode want if it differs from the currently held mode, and
	// returns the mode that was held beforehand so the caller can
	// restore it later. keepIfStronger suppresses downgrading an
	// exclusive/write hold down to a read hold. On flavors that carry
	// no real mode distinction (none, mutex) this is a no-op that
	// reports ModeMutex as the previous mode.
	AdjustLevel(want Mode, keepIfStronger bool) (Mode, error)
}

// New constructs a Locker of the given flavor.
func New(flavor Flavor) (Locker, error) {
	switch flavor {
	case FlavorNone:
		return noneLocker{}, nil
	case FlavorMutex:
		return &mutexLocker{}, nil
	case FlavorRWMutex:
		return &rwLocker{}, nil
	default:
		return nil, ErrInvalidOption
	}
}

// noneLocker implements Locker as a pure no-op, for objects allocated
// with FlavorNone (container nodes, for instance).
type noneLocker struct{}

func (noneLocker) Lock(Mode) error                      { return nil }
func (noneLocker) TryLock(Mode) (bool, error)           { return true, nil }
func (noneLocker) Unlock(Mode) error                    { return nil }
func (noneLocker) AdjustLevel(Mode, bool) (Mode, error) { return ModeMutex, nil }

// mutexLocker wraps sync.Mutex: the mode argument is ignored and every
// acquisition is exclusive. Unlike the C source, this does not attempt
// reentrant acquisition by the same goroutine: Go's sync.Mutex is
// intentionally non-reentrant, and faking reentrancy via goroutine
// identity is an anti-pattern the standard library authors explicitly
// avoid, so this reimplementation asks callers to avoid nested
// acquisition instead of emulating a recursive mutex.
type mutexLocker struct {
	mu sync.Mutex
}

func (m *mutexLocker) Lock(Mode) error {
	m.mu.Lock()
	return nil
}

func (m *mutexLocker) TryLock(Mode) (bool, error) {
	return m.mu.TryLock(), nil
}

func (m *mutexLocker) Unlock(Mode) error {
	m.mu.Unlock()
	return nil
}

func (m *mutexLocker) AdjustLevel(Mode, bool) (Mode, error) {
	return ModeMutex, nil
}

// rwLocker wraps sync.RWMutex with a "lockers count" auxiliary field:
// positive while readers hold it, -1 while a writer holds it, 0 when
// unlocked. AdjustLevel is the only consumer of this field.
type rwLocker struct {
	mu      sync.RWMutex
	lockers atomic.Int32
}

func (l *rwLocker) Lock(mode Mode) error {
	switch mode {
	case ModeRead:
		l.mu.RLock()
		l.lockers.Inc()
		return nil
	case ModeWrite:
		l.mu.Lock()
		l.lockers.Store(-1)
		return nil
	default:
		return ErrInvalidOption
	}
}

func (l *rwLocker) TryLock(mode Mode) (bool, error) {
	switch mode {
	case ModeRead:
		if l.mu.TryRLock() {
			l.lockers.Inc()
			return true, nil
		}
		return false, nil
	case ModeWrite:
		if l.mu.TryLock() {
			l.lockers.Store(-1)
			return true, nil
		}
		return false, nil
	default:
		return false, ErrInvalidOption
	}
}

func (l *rwLocker) Unlock(mode Mode) error {
	switch mode {
	case ModeRead:
		current := l.lockers.Dec()
		if current < 0 {
			// Should never happen; guards against a mismatched
			// Unlock(ModeRead) after a write hold.
			l.lockers.Store(0)
		}
		l.mu.RUnlock()
		return nil
	case ModeWrite:
		l.lockers.Store(0)
		l.mu.Unlock()
		return nil
	default:
		return ErrInvalidOption
	}
}

// currentMode reports the mode implied by the lockers count. Only
// valid while the lock is known to be held by the caller.
func (l *rwLocker) currentMode() Mode {
	if l.lockers.Load() < 0 {
		return ModeWrite
	}
	return ModeRead
}

func (l *rwLocker) AdjustLevel(want Mode, keepIfStronger bool) (Mode, error) {
	if want != ModeRead && want != ModeWrite {
		return ModeMutex, ErrInvalidOption
	}
	cur := l.currentMode()
	if cur == want {
		return cur, nil
	}
	if keepIfStronger && cur == ModeWrite && want == ModeRead {
		return cur, nil
	}
	if err := l.Unlock(cur); err != nil {
		return cur, err
	}
	if err := l.Lock(want); err != nil {
		return cur, err
	}
	return cur, nil
}
