/*
Package generic provides the core concurrency-safe inventory engine.

PURPOSE:
  This package contains domain-agnostic types and machinery for managing
  keyed quantities under heavy concurrent mutation. Whether tracking item
  stacks, resource pools, or account balances, the same engine handles
  serialized mutation, change notification, tag-grouped aggregation, and
  crash-safe persistence.

KEY CONCEPTS IN THIS FILE (types.go):
  - Value: The capability contract a quantity type must satisfy
  - Delta: A single (key, signed change) pair
  - SaveDocument: The versioned persistence envelope
  - Migration: Hook for loading documents written by older versions

DESIGN PRINCIPLES:
  1. Single writer: All map mutation happens on one processor goroutine
  2. All-or-nothing: A checked batch either fully applies or fully rejects
  3. Eventual reads: Direct reads may lag behind queued mutations
  4. No zero entries: Quantities that become empty are removed, not stored

USAGE:
  eng := generic.New[string, items.Count]()
  defer eng.Close()
  ok, err := eng.Apply(ctx, generic.Delta[string, items.Count]{Key: "ore", Amount: 5})

SEE ALSO:
  - engine.go: The engine facade and public operation set
  - processor.go: The single-consumer mutation loop
  - persist.go: Save/load with version negotiation
*/
package generic

import "encoding/json"

// =============================================================================
// VALUE - Capability contract for quantity types
// =============================================================================

// Value is the small capability interface a quantity type must implement to
// be managed by the engine. The engine assumes nothing else about the type:
// no business meaning, no unit, no ordering beyond what these three report.
//
// Domain packages provide concrete implementations:
//
//	// In items/types.go
//	type Count int64
//	func (c Count) Add(d Count) Count  { ... clamped addition ... }
//	func (c Count) Check(d Count) bool { return c+d >= 0 }
//	func (c Count) IsEmpty() bool      { return c <= 0 }
//
// The zero value of the implementing type is used as the existing quantity
// for keys not present in the inventory, so it must behave as "nothing".
type Value[V any] interface {
	// Add returns the quantity after applying the signed delta.
	// Implementations decide overflow policy (the items wrapper clamps).
	Add(delta V) V

	// Check reports whether the signed delta can be applied without
	// producing an invalid quantity (typically: would not go negative).
	Check(delta V) bool

	// IsEmpty reports whether the quantity represents "no stock".
	// Empty entries are pruned from the inventory map.
	IsEmpty() bool
}

// =============================================================================
// DELTA - One requested change to one key
// =============================================================================

// Delta is a single (key, signed amount) pair inside a pending change.
type Delta[K comparable, V Value[V]] struct {
	Key    K
	Amount V
}

// change is a pending mutation travelling through the queue. A nil result
// channel marks a forced change: applied unconditionally, never awaited.
// A change with a result channel and no deltas is a barrier: it carries no
// mutation and exists only to signal that everything enqueued before it has
// been processed.
type change[K comparable, V Value[V]] struct {
	deltas []Delta[K, V]
	result chan error
}

// newChecked builds an awaitable change. The result channel is buffered so
// the processor can resolve it exactly once without ever blocking, even if
// the caller stopped waiting.
func newChecked[K comparable, V Value[V]](deltas []Delta[K, V]) *change[K, V] {
	return &change[K, V]{deltas: deltas, result: make(chan error, 1)}
}

func newForced[K comparable, V Value[V]](deltas []Delta[K, V]) *change[K, V] {
	return &change[K, V]{deltas: deltas}
}

// resolve settles the completion handle. Safe to call on forced changes
// (no-op) and must be called at most once per change.
func (c *change[K, V]) resolve(err error) {
	if c.result != nil {
		c.result <- err
	}
}

// fail settles the completion handle without blocking. Unlike resolve it
// tolerates an already-resolved change: the fault path cannot know whether
// the change it interrupted got as far as resolving.
func (c *change[K, V]) fail(err error) {
	if c.result == nil {
		return
	}
	select {
	case c.result <- err:
	default:
	}
}

// isBarrier reports whether the change is a pure drain marker.
func (c *change[K, V]) isBarrier() bool {
	return len(c.deltas) == 0 && c.result != nil
}

// =============================================================================
// SAVE DOCUMENT - Versioned persistence envelope
// =============================================================================

// BaseVersion is the document version written by this engine when no
// explicit version is configured.
const BaseVersion = "1"

// SavedItem is one (key, quantity) pair in a save document. Order within a
// document is unspecified; loading reconstructs the map regardless.
type SavedItem[K comparable, V Value[V]] struct {
	Key K `json:"key"`
	Qty V `json:"qty"`
}

// SaveDocument is the envelope written by Save and consumed by Load.
type SaveDocument[K comparable, V Value[V]] struct {
	Version string            `json:"version"`
	Items   []SavedItem[K, V] `json:"items"`
}

// rawDocument defers item decoding until the version is known, so documents
// from older versions can be handed to a Migration untouched.
type rawDocument struct {
	Version string          `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// Migration converts the raw items payload of a foreign-version document
// into a live inventory map. Registered via WithMigration; loading a
// non-base-version document without one fails with UnsupportedVersionError.
type Migration[K comparable, V Value[V]] func(version string, items json.RawMessage) (map[K]V, error)
