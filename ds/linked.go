package ds

import "iter"

const null = -1

type linkedNode[T any] struct {
	value T
	next  int
}

// Linked is a one-to-many relation kept as per-owner singly linked lists
// in a shared node pool. Values of an owner are visited newest first.
type Linked[T any] struct {
	heads []int
	nodes []linkedNode[T]
}

// Add prepends value to the list of owner.
func (l *Linked[T]) Add(owner int, value T) {
	for owner >= len(l.heads) {
		l.heads = append(l.heads, null)
	}

	l.nodes = append(l.nodes, linkedNode[T]{value: value, next: l.heads[owner]})
	l.heads[owner] = len(l.nodes) - 1
}

// Range yields the values of owner in reverse insertion order.
func (l *Linked[T]) Range(owner int) iter.Seq[T] {
	return func(yield func(T) bool) {
		head := null
		if owner >= 0 && owner < len(l.heads) {
			head = l.heads[owner]
		}

		for ; head != null; head = l.nodes[head].next {
			if !yield(l.nodes[head].value) {
				return
			}
		}
	}
}

// Slice collects Range(owner).
func (l *Linked[T]) Slice(owner int) []T {
	var result []T

	for v := range l.Range(owner) {
		result = append(result, v)
	}

	return result
}

// Count returns the number of values of owner.
func (l *Linked[T]) Count(owner int) (n int) {
	for range l.Range(owner) {
		n++
	}

	return n
}
