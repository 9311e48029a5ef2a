// Package obj implements the object allocator and reference manager:
// every value handed out by Alloc carries its own atomic refcount, an
// optional destructor, and a lock built from package lock. The last
// release destroys the payload exactly once.
//
// The C source this is distilled from (astobj2.c) places a fixed
// header physically before the user payload and hands callers a
// pointer into the middle of one allocation. Go has no equivalent of
// that pointer arithmetic and does not need one: Handle[T] is the
// type-safe alternative to that pointer arithmetic, and the
// header-before-payload layout is dropped as an incidental C-ism, not
// a semantic.
package obj

import (
	"errors"
	"time"

	"github.com/facebookgo/stackerr"
	"go.uber.org/atomic"

	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/internal/reflog"
	"github.com/itbidhan/asterisk/internal/tag"
	"github.com/itbidhan/asterisk/lock"
)

const magicValue = 0xA5A5A5A5

var (
	// ErrInvalidHandle is returned when a handle's magic sentinel is
	// missing or corrupt: use-after-free, double-free, or a zero
	// Handle value.
	ErrInvalidHandle = errors.New("obj: invalid handle")
	// ErrRefcountUnderflow marks a release without a matching prior
	// acquisition, which risks a double-free in the original; this
	// reimplementation treats it as fatal (see DESIGN.md Open
	// Question decisions) rather than silently continuing.
	ErrRefcountUnderflow = errors.New("obj: refcount underflow")
)

// Option configures an allocation. See WithLockFlavor, WithLogger, and
// WithRefLog.
type Option func(*config)

type config struct {
	flavor    lock.Flavor
	logger    obslog.Logger
	reflog    *reflog.Writer
	reflogTag string
}

func defaultConfig() config {
	return config{flavor: lock.FlavorNone, logger: obslog.Nop()}
}

// WithLockFlavor selects the per-object lock primitive. The default,
// if unspecified, is lock.FlavorNone.
func WithLockFlavor(f lock.Flavor) Option {
	return func(c *config) { c.flavor = f }
}

// WithLogger attaches a logger used to report refcount logic errors
// (see ErrRefcountUnderflow) and destructor diagnostics.
func WithLogger(l obslog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRefLog attaches the serialized debug ref-log writer (see
// DESIGN.md Open Question decisions); every Bump call with a nonzero
// delta appends one line tagged with tag.
func WithRefLog(w *reflog.Writer, refTag string) Option {
	return func(c *config) { c.reflog = w; c.reflogTag = refTag }
}

// Handle is a strong reference to an allocated, refcounted value of
// type T. The zero Handle is not valid; only values returned by Alloc
// (or obtained by Bump-ing an existing Handle) should be used.
type Handle[T any] struct {
	rec *record[T]
}

type record[T any] struct {
	refcount   atomic.Int64
	magic      atomic.Uint32
	destructor func(*T)
	payload    T
	lk         lock.Locker
	logger     obslog.Logger
	reflog     *reflog.Writer
	reflogTag  string
}

// Alloc allocates a new object holding payload, with refcount 1. destructor,
// if non-nil, is invoked exactly once, on the transition to a refcount
// of zero, and receives a pointer to the payload.
func Alloc[T any](payload T, destructor func(*T), opts ...Option) (*Handle[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	lk, err := lock.New(cfg.flavor)
	if err != nil {
		cfg.logger.Errorf("obj: alloc failed: %s", stackerr.Wrap(err))
		return nil, err
	}
	rec := &record[T]{
		destructor: destructor,
		payload:    payload,
		lk:         lk,
		logger:     cfg.logger,
		reflog:     cfg.reflog,
		reflogTag:  cfg.reflogTag,
	}
	rec.refcount.Store(1)
	rec.magic.Store(magicValue)
	return &Handle[T]{rec: rec}, nil
}

func (h *Handle[T]) valid() bool {
	return h != nil && h.rec != nil && h.rec.magic.Load() == magicValue
}

// Bump adjusts the refcount by delta and returns the refcount observed
// before the adjustment, or -1 if the handle is invalid. delta == 0 is
// a pure read with no side effects. The transition to zero invokes the
// destructor (if any) and destroys the underlying storage; observing a
// negative transition is a caller logic error (a release without a
// matching prior acquisition) and is reported through the attached
// logger rather than silently tolerated.
func (h *Handle[T]) Bump(delta int64) (int64, error) {
	if !h.valid() {
		return -1, ErrInvalidHandle
	}
	r := h.rec
	if delta == 0 {
		return r.refcount.Load(), nil
	}
	newVal := r.refcount.Add(delta)
	prev := newVal - delta
	if r.reflog != nil {
		r.reflog.Record(time.Now(), r.reflogTag, delta, newVal)
	}
	switch {
	case newVal > 0:
		return prev, nil
	case newVal == 0:
		r.destroy()
		return prev, nil
	default:
		r.logger.DPanicf("obj: %s (tag=%q)", stackerr.Wrap(ErrRefcountUnderflow), r.reflogTag)
		return -1, ErrRefcountUnderflow
	}
}

// Release decrements the refcount by one. It is equivalent to
// Bump(-1) and discards the previous-count result.
func (h *Handle[T]) Release() error {
	_, err := h.Bump(-1)
	return err
}

// Cleanup is a null-safe convenience for deferred release sites: it
// tolerates a nil Handle and otherwise calls Release, discarding the
// result.
func (h *Handle[T]) Cleanup() {
	if h == nil {
		return
	}
	_, _ = h.Bump(-1)
}

// Get returns a pointer to the payload for in-place reads or writes.
// Callers must hold the object's lock (via Lock/TryLock) if the
// payload is shared across goroutines, exactly as with any other
// mutex-protected value; Get itself performs no locking. It returns
// nil if the handle is invalid.
func (h *Handle[T]) Get() *T {
	if !h.valid() {
		return nil
	}
	return &h.rec.payload
}

// Lock acquires the object's lock in the given mode. On a
// lock.FlavorNone object this is a no-op; on lock.FlavorMutex, mode is
// ignored and the acquisition is always exclusive; on
// lock.FlavorRWMutex, mode selects the primitive.
func (h *Handle[T]) Lock(mode lock.Mode) error {
	if !h.valid() {
		return ErrInvalidHandle
	}
	return h.rec.lk.Lock(mode)
}

// TryLock is the non-blocking counterpart to Lock.
func (h *Handle[T]) TryLock(mode lock.Mode) (bool, error) {
	if !h.valid() {
		return false, ErrInvalidHandle
	}
	return h.rec.lk.TryLock(mode)
}

// Unlock releases a lock previously acquired with Lock or TryLock in
// the same mode.
func (h *Handle[T]) Unlock(mode lock.Mode) error {
	if !h.valid() {
		return ErrInvalidHandle
	}
	return h.rec.lk.Unlock(mode)
}

func (r *record[T]) destroy() {
	if r.destructor != nil {
		r.destructor(&r.payload)
	}
	r.magic.Store(0)
	if tag.Debug {
		var zero T
		r.payload = zero
	}
}
