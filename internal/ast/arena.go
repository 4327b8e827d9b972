package ast

// Arena is an append-only store returning 1-based indices instead of
// pointers, so cross-references between expression variants (Variable to
// its Binding, Call to its Func, Closure to its Func) are plain integers
// rather than pointers — safe even when the references form a cycle
// (Closure → Func → Body → ... → Closure).
type Arena[T any] struct {
	data []T
}

// NewArena allocates an Arena with capHint preallocated slots.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{data: make([]T, 0, capHint)}
}

// Allocate appends value and returns its 1-based index.
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	return uint32(len(a.data))
}

// Get returns a pointer to the element at index, or nil for index 0.
func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return &a.data[index-1]
}

// Len returns the number of allocated elements.
func (a *Arena[T]) Len() uint32 { return uint32(len(a.data)) }

// Slice exposes the backing storage read-only; do not mutate through it.
func (a *Arena[T]) Slice() []T { return a.data }
