/*
gate.go - Re-openable pause/resume signal for the mutation processor

PURPOSE:
  A Gate is a binary synchronization primitive: waiters suspend while it is
  closed and pass straight through while it is open. Unlike sync.Once or a
  plain channel close, a Gate can be closed and re-opened any number of
  times, which is what pause/resume of the processing loop needs.

CONTRACT:
  - Wait() blocks until the gate is open; returns immediately if already open
  - Open() releases all current and future waiters until the next Close()
  - Close() transitions to closed only if currently open; closing a closed
    gate is a no-op, so repeated or racing closes can never wedge the next
    Open()
  - Open() and Close() never block and never fail

Pausing the engine closes the gate; queued work is neither dropped nor
reordered, its processing is merely delayed.

SEE ALSO:
  - processor.go: The only Wait() caller in this package
*/
package generic

import "sync"

// Gate is a reusable open/closed signal. The zero value is not usable;
// construct with NewGate.
type Gate struct {
	mu     sync.Mutex
	opened chan struct{} // closed channel == gate open
	isOpen bool
}

// NewGate returns a gate in the requested initial state. The engine
// constructs its gate open so processing starts immediately.
func NewGate(open bool) *Gate {
	g := &Gate{opened: make(chan struct{})}
	if open {
		close(g.opened)
		g.isOpen = true
	}
	return g
}

// Wait suspends the caller until the gate is open. Waiters released by an
// Open() are all released together; a Wait() that starts while the gate is
// open returns without blocking.
func (g *Gate) Wait() {
	g.mu.Lock()
	ch := g.opened
	g.mu.Unlock()
	<-ch
}

// Open transitions the gate to open and releases every waiter. No-op if
// already open.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.isOpen {
		close(g.opened)
		g.isOpen = true
	}
}

// Close transitions the gate to closed. No-op if already closed: the
// channel is only replaced from the open state, so concurrent closes
// cannot orphan a waiter.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isOpen {
		g.opened = make(chan struct{})
		g.isOpen = false
	}
}

// IsOpen reports the current state. Purely informational; the state may
// change the instant the lock is released.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isOpen
}
