package content

import "sync/atomic"

// Retainable is a resource with shared ownership.
//
// Every Retain must be matched by one Release. Release reports true when the
// last reference is gone and the resource may be reclaimed.
type Retainable interface {
	Retain()
	Release() bool
}

// ReferenceCounter is a thread-safe reference count. The zero value holds a
// single reference, owned by whoever created it.
type ReferenceCounter struct {
	// extra holds references beyond the first; -1 once fully released.
	extra atomic.Int32
}

// Retain adds a reference. It panics with ErrOverRelease if the count
// already reached zero.
func (r *ReferenceCounter) Retain() {
	for {
		v := r.extra.Load()
		if v < 0 {
			panic(ErrOverRelease)
		}
		if r.extra.CompareAndSwap(v, v+1) {
			return
		}
	}
}

// Release drops a reference and reports whether it was the last one. It
// panics with ErrOverRelease when called more times than Retain plus one.
func (r *ReferenceCounter) Release() bool {
	v := r.extra.Add(-1)
	if v < -1 {
		panic(ErrOverRelease)
	}
	return v == -1
}

// Count returns the number of live references.
func (r *ReferenceCounter) Count() int {
	return int(r.extra.Load()) + 1
}

// IsRetained reports whether more than one reference is live.
func (r *ReferenceCounter) IsRetained() bool {
	return r.extra.Load() > 0
}
