package mesh

// deliveryQueue serializes event delivery for one registration: events are
// handed to the handler one at a time, in arrival order. Pushing blocks
// when the buffer is full rather than dropping or reordering.
type deliveryQueue[T any] struct {
	ch   chan T
	done chan struct{}
}

func newDeliveryQueue[T any](deliver func(T)) *deliveryQueue[T] {
	q := &deliveryQueue[T]{
		ch:   make(chan T, 256),
		done: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-q.done:
				return
			case v := <-q.ch:
				deliver(v)
			}
		}
	}()
	return q
}

// push enqueues one event. It returns without delivering if the queue is
// stopped while waiting.
func (q *deliveryQueue[T]) push(v T) {
	select {
	case q.ch <- v:
	case <-q.done:
	}
}

// stop ends delivery. Safe to call once; callers guard repeats.
func (q *deliveryQueue[T]) stop() {
	close(q.done)
}
