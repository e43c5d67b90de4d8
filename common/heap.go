package common

// Heap is a binary min-heap ordered by less.
type Heap[T any] struct {
	buf  []T
	less func(a, b T) bool
}

func NewHeap[T any](less func(a, b T) bool) Heap[T] {
	return Heap[T]{less: less}
}

func (h *Heap[T]) Len() int {
	return len(h.buf)
}

// Push pushes the element x onto the heap in O(log n).
func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(len(h.buf) - 1)
}

// Peek returns the minimum element without removing it. The heap must not be empty.
func (h *Heap[T]) Peek() T {
	return h.buf[0]
}

// Pop removes and returns the minimum element in O(log n). The heap must not be empty.
func (h *Heap[T]) Pop() T {
	var def T

	n := len(h.buf) - 1
	result := h.buf[0]

	h.buf[0] = h.buf[n]
	h.buf[n] = def
	h.buf = h.buf[:n]
	h.down(0)

	return result
}

func (h *Heap[T]) Clear() {
	clear(h.buf)
	h.buf = h.buf[:0]
}

func (h *Heap[T]) up(j int) {
	for j > 0 {
		i := (j - 1) / 2 // parent
		if !h.less(h.buf[j], h.buf[i]) {
			break
		}

		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		j = i
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.buf)

	for {
		j := 2*i + 1 // left child
		if j >= n {
			break
		}

		if right := j + 1; right < n && h.less(h.buf[right], h.buf[j]) {
			j = right
		}

		if !h.less(h.buf[j], h.buf[i]) {
			break
		}

		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		i = j
	}
}
