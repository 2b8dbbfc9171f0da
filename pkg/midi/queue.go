package midi

// Queue is an ordered, growable buffer of events of one kind.
// It is owned by the block goroutine and is not safe for concurrent use.
type Queue[T Event] struct {
	events []T
}

// NewQueue returns a queue with room for capacity events before growing
func NewQueue[T Event](capacity int) *Queue[T] {
	return &Queue[T]{events: make([]T, 0, capacity)}
}

// Add appends one event
func (q *Queue[T]) Add(event T) {
	q.events = append(q.events, event)
}

// AddAll appends events in order
func (q *Queue[T]) AddAll(events []T) {
	q.events = append(q.events, events...)
}

// Events returns the buffered events in insertion order. The slice is only
// valid until the next Add or Clear.
func (q *Queue[T]) Events() []T {
	return q.events
}

func (q *Queue[T]) Len() int {
	return len(q.events)
}

func (q *Queue[T]) IsEmpty() bool {
	return len(q.events) == 0
}

// Clear empties the queue, keeping its backing storage
func (q *Queue[T]) Clear() {
	var zero T
	for i := range q.events {
		q.events[i] = zero
	}
	q.events = q.events[:0]
}
