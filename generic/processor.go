/*
processor.go - The single-consumer mutation loop

PURPOSE:
  One long-lived goroutine owns every write to the inventory map. It drains
  the change queue in FIFO order, enforces all-or-nothing semantics for
  checked batches, prunes entries that become empty, and fires change
  notifications. Because it is the only writer, no lock is needed for
  ordering - the map lock it takes exists solely so direct readers never
  observe a torn map.

STATES:
  idle    - blocked in dequeue, waiting for work
  gated   - holding a dequeued change, waiting for Resume
  applying - draining the visible backlog

DRAIN POLICY (explicit, not incidental):
  After passing the gate the processor applies the dequeued change and then
  everything else already visible in the queue WITHOUT re-checking the
  gate. A Pause issued mid-drain therefore takes effect only once the
  current backlog is exhausted, never mid-batch. This keeps pause semantics
  simple: "no change enqueued after the pause is observed gets applied",
  while changes the processor had already committed to finish normally.

FAULTS:
  A panic out of the loop is a stop-the-world condition for this engine
  instance. It is logged loudly, the queue closes against new producers,
  every unresolved completion handle fails with ErrEngineFault, and the
  done channel still closes so Close cannot hang. The engine does not
  attempt restarts.

SEE ALSO:
  - queue.go: FIFO source of changes
  - gate.go: The pause point
  - engine.go: Producers and observer registration
*/
package generic

import (
	"sort"

	"go.uber.org/zap"
)

// run is the mutation processor. Started by New, exits when the queue is
// closed and drained.
func (e *Engine[K, V]) run() {
	var cur *change[K, V]
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("mutation processor fault, engine halted",
				zap.Any("panic", r))
			e.halt(cur)
		}
	}()

	for {
		c, ok := e.queue.dequeue()
		if !ok {
			return
		}

		// Suspend here while paused. The dequeued change is held, not
		// dropped, so FIFO order survives the pause.
		e.gate.Wait()

		cur = c
		e.applyChange(c)
		for {
			next, more := e.queue.tryDequeue()
			if !more {
				break
			}
			cur = next
			e.applyChange(next)
		}
		cur = nil
	}
}

// halt is the fault path out of run: the processor will never apply
// another change, so the queue is closed against new producers and every
// unresolved handle, including the one mid-apply, fails with
// ErrEngineFault rather than being left pending forever.
func (e *Engine[K, V]) halt(cur *change[K, V]) {
	e.queue.close()
	if cur != nil {
		cur.fail(ErrEngineFault)
	}
	for _, c := range e.queue.discardAll() {
		c.fail(ErrEngineFault)
	}
}

// applyChange validates, applies, and notifies one change, then resolves
// its completion handle.
func (e *Engine[K, V]) applyChange(c *change[K, V]) {
	if c.isBarrier() {
		c.resolve(nil)
		return
	}

	e.mu.Lock()
	if c.result != nil && !e.checkLocked(c.deltas) {
		e.mu.Unlock()
		c.resolve(ErrChangeRejected)
		return
	}
	changed := e.applyLocked(c.deltas)
	tags, members := e.affectedTagsLocked(changed)
	e.mu.Unlock()

	e.notify(changed, tags, members)
	c.resolve(nil)
}

// checkLocked simulates the whole delta list against the current state and
// reports whether every step stays valid. The simulation is cumulative: a
// batch touching the same key twice is checked against its own earlier
// deltas, not just the starting quantity.
func (e *Engine[K, V]) checkLocked(deltas []Delta[K, V]) bool {
	scratch := make(map[K]V, len(deltas))
	for _, d := range deltas {
		cur, ok := scratch[d.Key]
		if !ok {
			cur = e.items[d.Key] // zero V for missing keys
		}
		if !cur.Check(d.Amount) {
			return false
		}
		scratch[d.Key] = cur.Add(d.Amount)
	}
	return true
}

// applyLocked mutates the map and returns the distinct changed keys in
// first-touched order. Keys whose resulting quantity is empty are removed
// rather than stored as zero entries.
func (e *Engine[K, V]) applyLocked(deltas []Delta[K, V]) []K {
	changed := make([]K, 0, len(deltas))
	seen := make(map[K]struct{}, len(deltas))
	for _, d := range deltas {
		next := e.items[d.Key].Add(d.Amount)
		if next.IsEmpty() {
			delete(e.items, d.Key)
		} else {
			e.items[d.Key] = next
		}
		if _, dup := seen[d.Key]; !dup {
			seen[d.Key] = struct{}{}
			changed = append(changed, d.Key)
		}
	}
	return changed
}

// affectedTagsLocked resolves the distinct tags of the changed keys and
// copies each tag's full current member set, all under the same lock hold
// as the mutation itself. A tag table replaced mid-batch can therefore
// never leak two index generations into one notification.
func (e *Engine[K, V]) affectedTagsLocked(changed []K) ([]string, map[string][]K) {
	var tags []string
	var members map[string][]K
	for _, k := range changed {
		tag, ok := e.tagTable[k]
		if !ok {
			continue
		}
		if _, dup := members[tag]; dup {
			continue
		}
		if members == nil {
			members = make(map[string][]K)
		}
		set := e.tagIndex[tag]
		list := make([]K, 0, len(set))
		for m := range set {
			list = append(list, m)
		}
		members[tag] = list
		tags = append(tags, tag)
	}
	// Sorted tag order makes notification order deterministic per run.
	sort.Strings(tags)
	return tags, members
}

// notify fires one inventory-changed event, then one event per affected
// tag. Callbacks run synchronously on the processor goroutine; observers
// that need isolation should hand off to their own goroutine.
func (e *Engine[K, V]) notify(changed []K, tags []string, members map[string][]K) {
	if len(changed) == 0 {
		return
	}

	e.obsMu.RLock()
	invObservers := make([]func([]K), len(e.invObservers))
	copy(invObservers, e.invObservers)
	tagObservers := make([]func(string, []K), len(e.tagObservers))
	copy(tagObservers, e.tagObservers)
	e.obsMu.RUnlock()

	for _, fn := range invObservers {
		fn(changed)
	}
	for _, tag := range tags {
		for _, fn := range tagObservers {
			fn(tag, members[tag])
		}
	}
}
