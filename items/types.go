/*
Package items provides the integer-counted item inventory, the most common
concrete use of the generic engine.

PURPOSE:
  Adapts the generic engine to string item identifiers and whole-number
  stack counts. This is the canonical "game items" shape: ore 12, plank 40,
  torch 3. The package is deliberately thin - the engine does all the work;
  this layer only fixes the types and adds count-flavored conveniences.

KEY TYPES:
  ItemID:    opaque string identifier, used as the map key
  Count:     int64 quantity with clamped (non-wrapping) addition
  Stack:     one (item, count) pair for batch calls
  Inventory: the engine specialized to (ItemID, Count)

OVERFLOW POLICY:
  Count.Add saturates at the int64 extremes instead of wrapping. A wrapped
  addition would turn a huge positive stock negative and corrupt the map's
  no-negative invariant; clamping keeps the entry at the maximum instead.

EXAMPLE:
  inv := items.New()
  defer inv.Close()
  ok, _ := inv.Add(ctx, "iron_ore", 5)     // checked, awaits outcome
  ok, _ = inv.Remove(ctx, "iron_ore", 3)   // ok=true, 2 left
  inv.ForceRemove("iron_ore", 10)          // unchecked, entry pruned

SEE ALSO:
  - generic/: The engine itself
  - credits/: Decimal-quantity counterpart
*/
package items

import (
	"math"

	"github.com/warp/inventory-engine/generic"
)

// =============================================================================
// ITEM ID AND COUNT
// =============================================================================

// ItemID identifies a stockable item. Opaque to the engine.
type ItemID string

// Count is a whole-number item quantity. The zero value means "none".
type Count int64

// Add returns the count after applying the signed delta, saturating at the
// int64 extremes rather than wrapping.
func (c Count) Add(delta Count) Count {
	if delta > 0 && c > math.MaxInt64-delta {
		return math.MaxInt64
	}
	if delta < 0 && c < math.MinInt64-delta {
		return math.MinInt64
	}
	return c + delta
}

// Check reports whether applying the delta keeps the count non-negative.
func (c Count) Check(delta Count) bool {
	return c.Add(delta) >= 0
}

// IsEmpty reports whether the count represents no stock. Non-positive
// counts are pruned from the inventory map.
func (c Count) IsEmpty() bool {
	return c <= 0
}

// Compile-time check that Count satisfies the engine's value contract.
var _ generic.Value[Count] = Count(0)

// =============================================================================
// STACK - Batch building block
// =============================================================================

// Stack is one (item, signed count) pair for batch operations.
type Stack struct {
	ID  ItemID `json:"id"`
	Qty int64  `json:"qty"`
}

func deltas(stacks []Stack) []generic.Delta[ItemID, Count] {
	ds := make([]generic.Delta[ItemID, Count], len(stacks))
	for i, s := range stacks {
		ds[i] = generic.Delta[ItemID, Count]{Key: s.ID, Amount: Count(s.Qty)}
	}
	return ds
}
