// Package registry provides the identity-keyed collection used to track live
// scenes and actors.
//
// A [Keyed] stores items densely and keeps a map from item identity to slot
// index, so Add and Remove are both O(1). Removal swaps the last item into
// the freed slot: slot order is not stable and carries no meaning.
//
// Identity is Go equality on the item value. Callers store pointers (or
// interfaces holding pointers), so two actors with identical properties are
// still distinct keys.
//
// Keyed is not safe for concurrent use; owners guard each registry with their
// own mutex.
package registry

import "errors"

// ErrDuplicateKey is returned by Add when the item is already tracked.
var ErrDuplicateKey = errors.New("registry: item already tracked")

type Keyed[T comparable] struct {
	index map[T]int
	items []T
}

func New[T comparable]() *Keyed[T] {
	return NewWithCapacity[T](4)
}

func NewWithCapacity[T comparable](capacity int) *Keyed[T] {
	return &Keyed[T]{
		index: make(map[T]int, capacity),
		items: make([]T, 0, capacity),
	}
}

func (k *Keyed[T]) Len() int { return len(k.items) }

func (k *Keyed[T]) Add(item T) error {
	if _, ok := k.index[item]; ok {
		return ErrDuplicateKey
	}
	k.index[item] = len(k.items)
	k.items = append(k.items, item)
	return nil
}

// Remove reports whether item was tracked. Removing an untracked item is a
// no-op.
func (k *Keyed[T]) Remove(item T) bool {
	idx, ok := k.index[item]
	if !ok {
		return false
	}
	delete(k.index, item)

	last := len(k.items) - 1
	if idx != last {
		moved := k.items[last]
		k.items[idx] = moved
		k.index[moved] = idx
	}

	var zero T
	k.items[last] = zero
	k.items = k.items[:last]
	return true
}

func (k *Keyed[T]) Contains(item T) bool {
	_, ok := k.index[item]
	return ok
}

// Snapshot returns a copy of the tracked items.
func (k *Keyed[T]) Snapshot() []T {
	out := make([]T, len(k.items))
	copy(out, k.items)
	return out
}

// CopyTo copies the tracked items into dst and reports false, copying
// nothing, when dst is too short.
func (k *Keyed[T]) CopyTo(dst []T) bool {
	if len(dst) < len(k.items) {
		return false
	}
	copy(dst, k.items)
	return true
}

// Each calls fn for every tracked item. fn must not mutate the registry.
func (k *Keyed[T]) Each(fn func(T)) {
	for _, item := range k.items {
		fn(item)
	}
}

// Clear drops every item. Native resources behind the items are untouched.
func (k *Keyed[T]) Clear() {
	clear(k.index)
	clear(k.items)
	k.items = k.items[:0]
}
