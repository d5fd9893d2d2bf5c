package renderer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// Ref is an owning handle to a native GPU object. Copies made with Acquire share one
// reference count; the native object is released when the last copy is released.
// A nil *Ref is a valid, empty handle.
type Ref[T driver.Object] struct {
	obj      T
	count    *atomic.Int32
	released atomic.Bool
}

// NewRef takes ownership of obj with a reference count of one.
//
// Parameters:
//   - obj: the native object to own
//
// Returns:
//   - *Ref[T]: the owning handle
func NewRef[T driver.Object](obj T) *Ref[T] {
	c := &atomic.Int32{}
	c.Store(1)
	return &Ref[T]{obj: obj, count: c}
}

// Get returns the owned object, or the zero value if the handle is empty or released.
func (r *Ref[T]) Get() T {
	var zero T
	if !r.Valid() {
		return zero
	}
	return r.obj
}

// Valid reports whether the handle still owns its object.
func (r *Ref[T]) Valid() bool {
	return r != nil && !r.released.Load()
}

// Acquire returns a new handle sharing ownership of the same object.
//
// Returns:
//   - *Ref[T]: a new handle, or nil if r is empty or released
func (r *Ref[T]) Acquire() *Ref[T] {
	if !r.Valid() {
		return nil
	}
	r.count.Add(1)
	return &Ref[T]{obj: r.obj, count: r.count}
}

// Count returns the number of live handles sharing the object.
func (r *Ref[T]) Count() int32 {
	if r == nil {
		return 0
	}
	return r.count.Load()
}

// Release gives up this handle's ownership and releases the native object when no
// other handle owns it. Releasing a handle twice is a no-op.
func (r *Ref[T]) Release() {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.count.Add(-1) == 0 {
		r.obj.Release()
	}
	var zero T
	r.obj = zero
}

// release releases the handle in *slot and clears the slot so the owning lifecycle
// step recreates it.
func release[T driver.Object](slot **Ref[T]) {
	if *slot == nil {
		return
	}
	(*slot).Release()
	*slot = nil
}
