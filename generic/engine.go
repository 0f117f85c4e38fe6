/*
engine.go - The inventory engine facade

PURPOSE:
  Owns the authoritative key->quantity map and every moving part around it:
  the change queue, the pause/resume gate, the tag index, and the observer
  lists. Public mutation entry points are non-blocking producers into the
  queue; all actual mutation happens on the single processor goroutine.

WRITE PATH (linearizable):
  Apply/Force enqueue -> processor validates -> processor mutates -> fires
  notifications. Checked calls await an all-or-nothing outcome; forced
  calls return immediately and always apply.

READ PATH (eventually consistent):
  Quantity/Contains/Snapshot read the live map directly under a read lock.
  They deliberately do NOT account for queued-but-unprocessed changes; a
  caller that needs "everything I submitted is visible" calls Flush first.
  The lock exists for memory safety against the mutating processor, not
  for ordering.

LIFECYCLE:
  New() starts the processor. Close() stops accepting work, drains what is
  already queued (so no completion handle is ever abandoned) and waits for
  the processor to exit.

SEE ALSO:
  - processor.go: The mutation loop behind this facade
  - tags.go: Tag table replacement and index rebuild
  - persist.go: Save/load
*/
package generic

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is a concurrency-safe inventory of quantities keyed by K. Create
// one with New and release it with Close.
type Engine[K comparable, V Value[V]] struct {
	// mu guards items, tagTable and tagIndex. The processor takes the write
	// side while applying a batch; direct reads take the read side.
	mu       sync.RWMutex
	items    map[K]V
	tagTable map[K]string
	tagIndex map[string]map[K]struct{}

	queue *changeQueue[K, V]
	gate  *Gate

	// saveMu serializes Save and Load against each other. Concurrent
	// callers queue on it; they never interleave.
	saveMu sync.Mutex

	version string
	migrate Migration[K, V]

	obsMu        sync.RWMutex
	invObservers []func(keys []K)
	tagObservers []func(tag string, members []K)

	logger    *zap.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures engine construction.
type Option[K comparable, V Value[V]] func(*Engine[K, V])

// WithLogger attaches a logger for processor faults and persistence
// lifecycle events. Defaults to a no-op logger.
func WithLogger[K comparable, V Value[V]](logger *zap.Logger) Option[K, V] {
	return func(e *Engine[K, V]) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithVersion overrides the version string stamped into save documents.
func WithVersion[K comparable, V Value[V]](version string) Option[K, V] {
	return func(e *Engine[K, V]) { e.version = version }
}

// WithMigration registers the converter invoked when Load encounters a
// document whose version differs from the engine's own.
func WithMigration[K comparable, V Value[V]](m Migration[K, V]) Option[K, V] {
	return func(e *Engine[K, V]) { e.migrate = m }
}

// New creates an engine and starts its mutation processor. The gate starts
// open: mutations are applied as soon as they are dequeued.
func New[K comparable, V Value[V]](opts ...Option[K, V]) *Engine[K, V] {
	e := &Engine[K, V]{
		items:    make(map[K]V),
		tagTable: make(map[K]string),
		tagIndex: make(map[string]map[K]struct{}),
		queue:    newChangeQueue[K, V](),
		gate:     NewGate(true),
		version:  BaseVersion,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	go e.run()
	return e
}

// =============================================================================
// MUTATIONS - Producers into the change queue
// =============================================================================

// Apply submits a checked batch and awaits its outcome. The whole batch is
// validated against the state at processing time: if any delta would leave
// its key with an invalid quantity, nothing is applied and Apply returns
// false. Missing keys are treated as holding the zero quantity.
//
// The returned error is non-nil only for engine-level failures (engine
// closed, change discarded by a concurrent Load, processor halted on a
// fault, context cancelled while waiting). A plain "not enough stock" is
// (false, nil).
//
// Cancelling ctx abandons the wait, not the change: the mutation may still
// be applied afterwards.
func (e *Engine[K, V]) Apply(ctx context.Context, deltas ...Delta[K, V]) (bool, error) {
	c := newChecked(deltas)
	if err := e.queue.enqueue(c); err != nil {
		return false, err
	}
	return e.await(ctx, c)
}

// Force submits a fire-and-forget batch. No validity check is performed:
// the deltas are applied unconditionally, and any key whose resulting
// quantity is empty is removed. Returns an error only if the engine is
// closed.
func (e *Engine[K, V]) Force(deltas ...Delta[K, V]) error {
	return e.queue.enqueue(newForced(deltas))
}

// Flush blocks until every change enqueued before the call has been
// processed. It is implemented as a zero-delta barrier through the same
// queue, so it observes exactly the FIFO order mutations do. Save uses it
// to guarantee its snapshot covers all previously acknowledged changes.
func (e *Engine[K, V]) Flush(ctx context.Context) error {
	c := newChecked[K, V](nil)
	if err := e.queue.enqueue(c); err != nil {
		return err
	}
	_, err := e.await(ctx, c)
	return err
}

func (e *Engine[K, V]) await(ctx context.Context, c *change[K, V]) (bool, error) {
	select {
	case err := <-c.result:
		if err == ErrChangeRejected {
			return false, nil
		}
		return err == nil, err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// =============================================================================
// READS - Direct against the live map
// =============================================================================

// Quantity returns the current quantity for key and whether the key is
// present. The result reflects processed changes only.
func (e *Engine[K, V]) Quantity(key K) (V, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.items[key]
	return v, ok
}

// Contains reports whether key currently holds a non-empty quantity.
func (e *Engine[K, V]) Contains(key K) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.items[key]
	return ok
}

// Snapshot returns a point-in-time copy of the inventory map. The copy is
// the caller's to keep; later mutations do not touch it.
func (e *Engine[K, V]) Snapshot() map[K]V {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := make(map[K]V, len(e.items))
	for k, v := range e.items {
		snap[k] = v
	}
	return snap
}

// Len returns the number of distinct keys currently stocked.
func (e *Engine[K, V]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// PendingChanges reports how many changes are queued but not yet applied.
func (e *Engine[K, V]) PendingChanges() int {
	return e.queue.size()
}

// =============================================================================
// PAUSE / RESUME
// =============================================================================

// Pause closes the gate: the processor stops picking up new changes after
// it finishes the backlog it is currently draining. Nothing queued is
// dropped or reordered. Pausing a closed engine is a no-op: Close relies
// on an open gate to drain, so the gate must never be re-closed once
// teardown has begun.
func (e *Engine[K, V]) Pause() {
	if e.queue.isClosed() {
		return
	}
	e.gate.Close()
	// Close may have started between the check and the gate close. Its
	// queue.close happens before its gate.Open, so observing a closed
	// queue here means our gate close could be the last and must be
	// undone for the shutdown drain to finish.
	if e.queue.isClosed() {
		e.gate.Open()
	}
}

// Resume re-opens the gate; processing continues in original submission
// order.
func (e *Engine[K, V]) Resume() { e.gate.Open() }

// Paused reports whether the gate is currently closed.
func (e *Engine[K, V]) Paused() bool { return !e.gate.IsOpen() }

// =============================================================================
// OBSERVERS
// =============================================================================

// OnInventoryChanged registers a callback invoked once per applied batch
// with the set of keys that changed. Callbacks run synchronously on the
// processor goroutine, in registration order; a slow callback delays
// mutation processing.
func (e *Engine[K, V]) OnInventoryChanged(fn func(keys []K)) {
	if fn == nil {
		return
	}
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.invObservers = append(e.invObservers, fn)
}

// OnTagChanged registers a callback invoked once per affected tag per
// applied batch, carrying the tag's full current member set. Tag callbacks
// fire after the inventory-changed callback, tags in sorted order.
func (e *Engine[K, V]) OnTagChanged(fn func(tag string, members []K)) {
	if fn == nil {
		return
	}
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.tagObservers = append(e.tagObservers, fn)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Close tears the engine down. New mutations are rejected immediately with
// ErrEngineClosed; changes already queued are still applied (their handles
// resolve normally) before the processor exits. Close blocks until the
// drain completes and is safe to call more than once.
func (e *Engine[K, V]) Close() {
	e.closeOnce.Do(func() {
		e.queue.close()
		// A paused engine must still drain its backlog and exit.
		e.gate.Open()
		<-e.done
	})
}
