package containers

// Queue is an unbounded FIFO queue.
type Queue[T any] struct {
	data []T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue adds an element to the queue
func (q *Queue[T]) Enqueue(value T) {
	q.data = append(q.data, value)
}

// Dequeue removes and returns the front element in the queue
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.data) == 0 {
		return zero, false
	}
	value := q.data[0]
	q.data[0] = zero
	q.data = q.data[1:]
	return value, true
}

// Drain removes and returns every queued element in FIFO order.
func (q *Queue[T]) Drain() []T {
	out := q.data
	q.data = nil
	return out
}

// Len returns the number of queued elements
func (q *Queue[T]) Len() int {
	return len(q.data)
}

// IsEmpty checks if the queue is empty
func (q *Queue[T]) IsEmpty() bool {
	return len(q.data) == 0
}
