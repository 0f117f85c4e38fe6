/*
inventory.go - The engine specialized to item stacks

PURPOSE:
  Wraps generic.Engine[ItemID, Count] with count-flavored entry points.
  Checked calls await the processor's all-or-nothing verdict; forced calls
  return immediately and always apply. Everything else (reads, tags,
  pause/resume, save/load, observers) is the embedded engine's API,
  promoted unchanged.

SEE ALSO:
  - types.go: ItemID / Count / Stack
  - generic/engine.go: Semantics of every promoted method
*/
package items

import (
	"context"

	"github.com/warp/inventory-engine/generic"
)

// Inventory is an item-stack inventory. Construct with New, release with
// Close (inherited from the engine).
type Inventory struct {
	*generic.Engine[ItemID, Count]
}

// New creates an inventory and starts its processor. Options (logger,
// version, migration) pass through to the engine.
func New(opts ...generic.Option[ItemID, Count]) *Inventory {
	return &Inventory{Engine: generic.New(opts...)}
}

// =============================================================================
// CHECKED MUTATIONS - Await the all-or-nothing outcome
// =============================================================================

// Add stocks qty of id. Returns false only if the batch was rejected,
// which for a positive qty cannot happen; the checked form still routes
// through the processor so ordering with other mutations is preserved.
func (inv *Inventory) Add(ctx context.Context, id ItemID, qty int64) (bool, error) {
	return inv.Apply(ctx, generic.Delta[ItemID, Count]{Key: id, Amount: Count(qty)})
}

// Remove takes qty of id. Returns false, with no effect, if fewer than qty
// are stocked at processing time.
func (inv *Inventory) Remove(ctx context.Context, id ItemID, qty int64) (bool, error) {
	return inv.Apply(ctx, generic.Delta[ItemID, Count]{Key: id, Amount: Count(-qty)})
}

// AddBatch stocks several stacks atomically.
func (inv *Inventory) AddBatch(ctx context.Context, stacks []Stack) (bool, error) {
	return inv.Apply(ctx, deltas(stacks)...)
}

// RemoveBatch takes several stacks atomically: if any single stack is
// short, none are taken. Quantities are given positive; the negation is
// applied here.
func (inv *Inventory) RemoveBatch(ctx context.Context, stacks []Stack) (bool, error) {
	negated := make([]Stack, len(stacks))
	for i, s := range stacks {
		negated[i] = Stack{ID: s.ID, Qty: -s.Qty}
	}
	return inv.Apply(ctx, deltas(negated)...)
}

// =============================================================================
// FORCED MUTATIONS - Fire-and-forget, no validity check
// =============================================================================

// ForceAdd stocks qty of id unconditionally.
func (inv *Inventory) ForceAdd(id ItemID, qty int64) error {
	return inv.Force(generic.Delta[ItemID, Count]{Key: id, Amount: Count(qty)})
}

// ForceRemove takes qty of id unconditionally. If the result would be zero
// or negative the entry is removed entirely.
func (inv *Inventory) ForceRemove(id ItemID, qty int64) error {
	return inv.Force(generic.Delta[ItemID, Count]{Key: id, Amount: Count(-qty)})
}

// ForceBatch applies several signed stacks unconditionally.
func (inv *Inventory) ForceBatch(stacks []Stack) error {
	return inv.Force(deltas(stacks)...)
}

// =============================================================================
// READS - Count-flavored conveniences over the live map
// =============================================================================

// Stock returns the current count of id, zero if absent. Reflects
// processed changes only; see the engine's read-path notes.
func (inv *Inventory) Stock(id ItemID) int64 {
	c, _ := inv.Quantity(id)
	return int64(c)
}

// Has reports whether at least qty of id is currently stocked.
func (inv *Inventory) Has(id ItemID, qty int64) bool {
	return inv.Stock(id) >= qty
}

// Stacks returns a point-in-time copy of the inventory as a stack list.
func (inv *Inventory) Stacks() []Stack {
	snap := inv.Snapshot()
	stacks := make([]Stack, 0, len(snap))
	for id, c := range snap {
		stacks = append(stacks, Stack{ID: id, Qty: int64(c)})
	}
	return stacks
}
