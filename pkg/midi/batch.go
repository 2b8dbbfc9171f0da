package midi

// MaxEventsPerBlock is the largest packet a host accepts in one delivery call
const MaxEventsPerBlock = 256

// Batcher cuts a queue into host-sized packets. The packet buffer is reused
// between calls, so a deliver func must copy anything it keeps.
type Batcher[T Event] struct {
	packet []T
}

// NewBatcher returns a batcher delivering at most size events per call.
// A size outside (0, MaxEventsPerBlock] falls back to MaxEventsPerBlock.
func NewBatcher[T Event](size int) *Batcher[T] {
	if size <= 0 || size > MaxEventsPerBlock {
		size = MaxEventsPerBlock
	}
	return &Batcher[T]{packet: make([]T, 0, size)}
}

// Size returns the packet capacity
func (b *Batcher[T]) Size() int {
	return cap(b.packet)
}

// Drain delivers the queue in order as ceil(len/size) packets, then clears
// it. An empty queue makes no call. Delivery errors do not stop the drain;
// the first one is returned together with the number of calls made.
func (b *Batcher[T]) Drain(q *Queue[T], deliver func([]T) error) (int, error) {
	events := q.Events()
	size := cap(b.packet)

	var (
		calls    int
		firstErr error
	)
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}

		b.packet = append(b.packet[:0], events[start:end]...)
		if err := deliver(b.packet); err != nil && firstErr == nil {
			firstErr = err
		}
		calls++
	}

	var zero T
	for i := range b.packet {
		b.packet[i] = zero
	}
	b.packet = b.packet[:0]
	q.Clear()
	return calls, firstErr
}
