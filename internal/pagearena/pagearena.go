// Package pagearena implements the page-scoped slab allocator described
// in spec.md's Design Notes ("Reference-counted, interned tables ->
// arena + index"): rather than the reference implementation's
// reference-counted intrusive-linked-list DCILUTs and ad hoc scratch
// buffers, callers hold small generation-checked Handles into a slab
// they own. A stale handle (one whose slot has been freed and reused) is
// detected rather than silently dereferencing the wrong object.
//
// All per-link, per-page allocations conceptually live in "the page's
// arena" per spec.md §5 and are freed in bulk when the page is
// destroyed; Arena.Reset models that bulk free.
package pagearena

// Handle references a slot in an Arena. The zero Handle is never valid.
type Handle struct {
	index      int
	generation uint32
}

// Valid reports whether h could possibly reference a live slot (it does
// not, by itself, prove the slot hasn't been freed and reused — use
// Arena.Get for that).
func (h Handle) Valid() bool { return h.generation != 0 }

type slot[T any] struct {
	value      T
	generation uint32
	used       bool
}

// Arena is a generation-indexed slab of T, scoped to one page's lifetime.
// It is not safe for concurrent use: per spec.md §5, a page's arena is
// touched only by the single interpretation thread (recombine and
// preconvert), never by the worker threads that render after preconvert
// has handed off.
type Arena[T any] struct {
	slots []slot[T]
	free  []int
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc reserves a slot holding value and returns a handle to it.
func (a *Arena[T]) Alloc(value T) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = value
		s.used = true
		s.generation++
		if s.generation == 0 {
			s.generation = 1 // never reissue the zero generation
		}
		return Handle{index: idx, generation: s.generation}
	}
	a.slots = append(a.slots, slot[T]{value: value, generation: 1, used: true})
	return Handle{index: len(a.slots) - 1, generation: 1}
}

// Get returns the value at h and true, or the zero value and false if h
// is stale (its slot was freed, or has since been reused for a different
// allocation).
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if h.index < 0 || h.index >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.used || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

// Set overwrites the value at h in place, reporting false (without
// writing) if h is stale. The handle's identity does not change.
func (a *Arena[T]) Set(h Handle, value T) bool {
	if h.index < 0 || h.index >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	if !s.used || s.generation != h.generation {
		return false
	}
	s.value = value
	return true
}

// Free releases h's slot for reuse by a future Alloc. Freeing an already
// stale handle is a no-op.
func (a *Arena[T]) Free(h Handle) {
	if h.index < 0 || h.index >= len(a.slots) {
		return
	}
	s := &a.slots[h.index]
	if !s.used || s.generation != h.generation {
		return
	}
	var zero T
	s.value = zero
	s.used = false
	a.free = append(a.free, h.index)
}

// Len reports the number of live (allocated, not yet freed) slots.
func (a *Arena[T]) Len() int {
	return len(a.slots) - len(a.free)
}

// Reset frees every slot in bulk, as happens when the owning page is
// destroyed. Slots keep their generations, so handles issued before the
// Reset stay stale.
func (a *Arena[T]) Reset() {
	var zero T
	a.free = a.free[:0]
	for i := range a.slots {
		a.slots[i].value = zero
		a.slots[i].used = false
		a.free = append(a.free, i)
	}
}
