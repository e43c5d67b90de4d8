package common

import "fmt"

// CircularQueue is a fixed capacity FIFO ring buffer.
type CircularQueue[T any] struct {
	items []T
	count int
	pos   int
}

func NewCircularQueue[T any](capacity int) CircularQueue[T] {
	return CircularQueue[T]{
		items: make([]T, capacity),
	}
}

func (cq *CircularQueue[T]) Push(item T) error {
	if cq.IsFull() {
		return fmt.Errorf("queue is already populated with %d items", cq.count)
	}

	cq.items[(cq.pos+cq.count)%len(cq.items)] = item
	cq.count++

	return nil
}

// Pop removes the oldest item. It returns the zero value on an empty queue.
func (cq *CircularQueue[T]) Pop() T {
	var def T

	if cq.count == 0 {
		return def
	}

	result := cq.items[cq.pos]
	cq.items[cq.pos] = def
	cq.pos = (cq.pos + 1) % len(cq.items)
	cq.count--

	return result
}

func (cq *CircularQueue[T]) Peek() T {
	var def T

	if cq.count == 0 {
		return def
	}

	return cq.items[cq.pos]
}

func (cq CircularQueue[T]) Len() int {
	return cq.count
}

func (cq CircularQueue[T]) Cap() int {
	return len(cq.items)
}

func (cq CircularQueue[T]) IsFull() bool {
	return cq.count == len(cq.items)
}

// ClearFrom drops the items from position from (0 = oldest) to the newest one.
func (cq *CircularQueue[T]) ClearFrom(from int) {
	var def T

	from = max(0, from)

	for i := from; i < cq.count; i++ {
		cq.items[(cq.pos+i)%len(cq.items)] = def
	}

	cq.count = min(cq.count, from)
}
