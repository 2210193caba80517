package bigseq

import "iter"

// Memory is a Sequence backed by a plain slice.
type Memory[T any] struct {
	items  []T
	closed bool
}

// NewMemory returns an empty in-memory sequence with room for capacity elements.
func NewMemory[T any](capacity int) *Memory[T] {
	return &Memory[T]{items: make([]T, 0, max(capacity, 0))}
}

// FromSlice wraps items without copying.
func FromSlice[T any](items []T) *Memory[T] {
	return &Memory[T]{items: items}
}

func (m *Memory[T]) Append(v T) error {
	if m.closed {
		return ErrClosed
	}
	m.items = append(m.items, v)
	return nil
}

func (m *Memory[T]) Get(i int) (T, error) {
	var zero T
	if m.closed {
		return zero, ErrClosed
	}
	if i < 0 || i >= len(m.items) {
		return zero, ErrOutOfRange
	}
	return m.items[i], nil
}

func (m *Memory[T]) Len() int { return len(m.items) }

func (m *Memory[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range m.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (m *Memory[T]) Err() error { return nil }

// Slice exposes the backing slice.
func (m *Memory[T]) Slice() []T { return m.items }

func (m *Memory[T]) Close() error {
	m.items = nil
	m.closed = true
	return nil
}
