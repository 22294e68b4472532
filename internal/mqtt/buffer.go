package mqtt

// message is a serialized publish, kept for replay after reconnection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a bounded FIFO of messages waiting for the broker. When full,
// the oldest entry is overwritten. Not safe for concurrent use;
// RealPublisher guards it with its mutex.
type outbox[T any] struct {
	items   []T
	start   int
	size    int
	dropped int
}

func newOutbox[T any](capacity int) *outbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox[T]{items: make([]T, capacity)}
}

// add queues v and reports whether the oldest entry was dropped to make room.
func (o *outbox[T]) add(v T) bool {
	n := len(o.items)
	if o.size < n {
		o.items[(o.start+o.size)%n] = v
		o.size++
		return false
	}
	o.items[o.start] = v
	o.start = (o.start + 1) % n
	o.dropped++
	return true
}

// take empties the outbox. It returns the queued entries oldest first and
// how many were lost to overflow since the previous take.
func (o *outbox[T]) take() ([]T, int) {
	dropped := o.dropped
	o.dropped = 0
	if o.size == 0 {
		return nil, dropped
	}

	out := make([]T, o.size)
	for i := range out {
		out[i] = o.items[(o.start+i)%len(o.items)]
	}

	var zero T
	for i := range o.items {
		o.items[i] = zero
	}
	o.start, o.size = 0, 0
	return out, dropped
}

func (o *outbox[T]) len() int {
	return o.size
}
