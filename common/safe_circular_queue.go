package common

import (
	"sync"
)

// SafeCircularQueue is a bounded blocking queue for handing items from
// producer goroutines to a consumer.
type SafeCircularQueue[T any] struct {
	queue    CircularQueue[T]
	mutex    sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	closed   bool
}

// NewSafeCircularQueue initializes the SafeCircularQueue
func NewSafeCircularQueue[T any](capacity int) *SafeCircularQueue[T] {
	scq := &SafeCircularQueue[T]{
		queue: NewCircularQueue[T](capacity),
	}

	scq.notEmpty = sync.NewCond(&scq.mutex)
	scq.notFull = sync.NewCond(&scq.mutex)

	return scq
}

// Close stops accepting new items and unblocks waiting goroutines.
// Items already in the queue can still be popped.
func (scq *SafeCircularQueue[T]) Close() {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	if !scq.closed {
		scq.closed = true
		scq.notEmpty.Broadcast()
		scq.notFull.Broadcast()
	}
}

// Push adds an item, waiting while the queue is full.
// It returns false if the queue has been closed.
func (scq *SafeCircularQueue[T]) Push(item T) bool {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	for scq.queue.IsFull() && !scq.closed {
		scq.notFull.Wait()
	}

	if scq.closed {
		return false
	}

	_ = scq.queue.Push(item)

	scq.notEmpty.Signal()

	return true
}

// Pop removes the oldest item, waiting while the queue is empty.
// active is false once the queue is closed and drained.
func (scq *SafeCircularQueue[T]) Pop() (result T, active bool) {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	for scq.queue.Len() == 0 && !scq.closed {
		scq.notEmpty.Wait()
	}

	if scq.queue.Len() == 0 {
		return result, false
	}

	scq.notFull.Signal()

	return scq.queue.Pop(), true
}

// Clear drops all queued items.
func (scq *SafeCircularQueue[T]) Clear() {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	scq.queue.ClearFrom(0)

	scq.notFull.Broadcast()
}

func (scq *SafeCircularQueue[T]) Len() int {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	return scq.queue.Len()
}

func (scq *SafeCircularQueue[T]) IsClosed() bool {
	scq.mutex.Lock()
	defer scq.mutex.Unlock()

	return scq.closed
}
