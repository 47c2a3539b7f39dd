// This package contains [Sequence], the ordered container backing the pending and locked items
// of a [github.com/teenjuna/sendbuf.Buffer].
package buffer

import (
	"iter"
	"slices"
)

// Sequence is an ordered in-memory container of items.
//
// Sequence is not thread-safe. The owning buffer only touches it from its serializer.
type Sequence[Item any] struct {
	items []Item
}

// New returns an empty sequence with room for capacity items.
func New[Item any](capacity int) *Sequence[Item] {
	if capacity < 0 {
		panic("capacity can't be < 0")
	}
	return &Sequence[Item]{
		items: make([]Item, 0, capacity),
	}
}

// Push appends items to the back of the sequence.
func (s *Sequence[Item]) Push(items ...Item) {
	s.items = append(s.items, items...)
}

// PushFront inserts items at the front of the sequence, keeping their relative order.
func (s *Sequence[Item]) PushFront(items ...Item) {
	s.items = slices.Insert(s.items, 0, items...)
}

// TakeFront removes up to n items from the front of the sequence and returns them in order.
//
// The returned slice is owned by the caller.
func (s *Sequence[Item]) TakeFront(n int) []Item {
	n = max(0, min(n, len(s.items)))
	taken := slices.Clone(s.items[:n])

	rest := copy(s.items, s.items[n:])
	clear(s.items[rest:])
	s.items = s.items[:rest]

	return taken
}

// Size returns the number of items in the sequence.
func (s *Sequence[Item]) Size() int {
	return len(s.items)
}

// Iter returns the items from front to back.
func (s *Sequence[Item]) Iter() iter.Seq[Item] {
	return slices.Values(s.items)
}

// Snapshot returns a copy of the items from front to back.
func (s *Sequence[Item]) Snapshot() []Item {
	return slices.Clone(s.items)
}

// Reset removes all items, keeping the allocated capacity.
func (s *Sequence[Item]) Reset() {
	clear(s.items)
	s.items = s.items[:0]
}
