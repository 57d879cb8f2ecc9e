package playback

// fifo is an unbounded first-in first-out queue. Callers synchronize access.
type fifo[T any] struct {
	items []T
}

func (q *fifo[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes the front item; ok is false when the queue is empty.
func (q *fifo[T]) Dequeue() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

func (q *fifo[T]) Len() int {
	return len(q.items)
}

func (q *fifo[T]) Reset() {
	q.items = nil
}
