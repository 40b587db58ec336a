package planar

import "github.com/san-kum/rigidkit/internal/native"

type slot[T any] struct {
	gen  uint32
	used bool
	val  T
}

// arena stores engine objects behind generation-checked handles. A released
// slot is reused with a bumped generation, so stale handles miss.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func (a *arena[T]) insert(v T) native.Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.used = true
	s.val = v
	a.live++
	return native.MakeHandle(idx, s.gen)
}

func (a *arena[T]) get(h native.Handle) (T, bool) {
	var zero T
	idx := h.Index()
	if h.IsNull() || int(idx) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[idx]
	if !s.used || s.gen != h.Generation() {
		return zero, false
	}
	return s.val, true
}

func (a *arena[T]) remove(h native.Handle) (T, bool) {
	v, ok := a.get(h)
	if !ok {
		return v, false
	}
	idx := h.Index()
	var zero T
	a.slots[idx].used = false
	a.slots[idx].val = zero
	a.free = append(a.free, idx)
	a.live--
	return v, true
}

func (a *arena[T]) len() int { return a.live }

// each visits live objects in slot order.
func (a *arena[T]) each(fn func(native.Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			fn(native.MakeHandle(uint32(i), s.gen), s.val)
		}
	}
}
