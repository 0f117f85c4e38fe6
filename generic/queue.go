/*
queue.go - Unbounded multi-producer/single-consumer change queue

PURPOSE:
  Carries pending changes from public entry points to the mutation
  processor. Producers never block: the queue grows without bound, so a
  burst of writers can never stall on a slow consumer. The only enqueue
  failure is a permanently closed queue (engine torn down).

ORDERING:
  Strict FIFO across all producers. Two changes enqueued in wall-clock
  order, even by different goroutines, are handed to the consumer in that
  same order. Only the processor dequeues.

WHY NOT A CHANNEL:
  A Go channel is bounded; a full channel would block producers, which the
  contract forbids. A mutex-guarded slice with a sync.Cond gives unbounded
  capacity, FIFO, and a blocking wait for the single consumer.

SEE ALSO:
  - processor.go: The sole consumer
  - persist.go: Load discards queued work via discardAll
*/
package generic

import "sync"

type changeQueue[K comparable, V Value[V]] struct {
	mu      sync.Mutex
	ready   *sync.Cond
	pending []*change[K, V]
	closed  bool
}

func newChangeQueue[K comparable, V Value[V]]() *changeQueue[K, V] {
	q := &changeQueue[K, V]{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// enqueue appends a change. Never blocks. Fails only after close, so a
// caller holding a completion handle can resolve it instead of leaving it
// dangling.
func (q *changeQueue[K, V]) enqueue(c *change[K, V]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrEngineClosed
	}
	q.pending = append(q.pending, c)
	q.ready.Signal()
	return nil
}

// dequeue blocks until a change is available and returns it. Returns
// ok=false only once the queue is closed and fully drained; queued changes
// that precede a close are still delivered (graceful drain).
func (q *changeQueue[K, V]) dequeue() (*change[K, V], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.ready.Wait()
	}
	if len(q.pending) == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// tryDequeue returns the next change without blocking, if one is queued.
func (q *changeQueue[K, V]) tryDequeue() (*change[K, V], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// discardAll removes and returns every queued change without processing
// it. Used by Load, which abandons in-flight work before installing a
// fresh inventory map; the caller must resolve the returned handles.
func (q *changeQueue[K, V]) discardAll() []*change[K, V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.pending
	q.pending = nil
	return dropped
}

// close permanently rejects new producers and wakes the consumer so it can
// finish draining and exit.
func (q *changeQueue[K, V]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.ready.Broadcast()
}

// isClosed reports whether the queue has been permanently closed.
func (q *changeQueue[K, V]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// size reports the number of queued-but-unprocessed changes.
func (q *changeQueue[K, V]) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *changeQueue[K, V]) popLocked() *change[K, V] {
	c := q.pending[0]
	// Nil out the slot so the backing array does not pin processed changes.
	q.pending[0] = nil
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		q.pending = nil
	}
	return c
}
