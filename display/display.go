/*
Package display provides ready-made change subscribers for an inventory
engine: a structured-log echo of every applied batch, and a live per-tag
total view for counted inventories.

PURPOSE:
  The engine's observer contract is two callbacks - one per applied batch
  with the changed keys, one per affected tag with the tag's member set.
  This package packages the two common consumers of those callbacks so
  applications do not each rewrite them:

  - Attach: logs every batch and tag event (the "console display")
  - TagTotals: maintains aggregate stock per tag, updated on tag events

THREADING:
  Observer callbacks run synchronously on the engine's processor
  goroutine. Both subscribers here do cheap work (a log call, a map
  update) so they are safe to run inline. A heavier consumer should copy
  the payload and hand off.

SEE ALSO:
  - generic/engine.go: OnInventoryChanged / OnTagChanged registration
*/
package display

import (
	"sync"

	"go.uber.org/zap"

	"github.com/warp/inventory-engine/generic"
	"github.com/warp/inventory-engine/items"
)

// =============================================================================
// LOG SUBSCRIBER
// =============================================================================

// Attach registers logging observers on the engine: one line per applied
// batch with the changed keys, one line per affected tag with its member
// set.
func Attach[K comparable, V generic.Value[V]](eng *generic.Engine[K, V], logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "inventory_display"))

	eng.OnInventoryChanged(func(keys []K) {
		logger.Info("inventory updated",
			zap.Int("changed", len(keys)),
			zap.Any("keys", keys))
	})
	eng.OnTagChanged(func(tag string, members []K) {
		logger.Info("tag updated",
			zap.String("tag", tag),
			zap.Int("members", len(members)),
			zap.Any("keys", members))
	})
}

// =============================================================================
// TAG TOTALS - Aggregated stock per tag
// =============================================================================

// TagTotals keeps a running total of stocked counts per tag for an item
// inventory. Totals are recomputed from the live map on each tag event,
// so they track the engine's own notion of membership exactly.
type TagTotals struct {
	mu     sync.RWMutex
	totals map[string]int64
}

// NewTagTotals builds the view and subscribes it to inv. The view starts
// empty and fills in as tag events arrive.
func NewTagTotals(inv *items.Inventory) *TagTotals {
	t := &TagTotals{totals: make(map[string]int64)}
	inv.OnTagChanged(func(tag string, members []items.ItemID) {
		var total int64
		for _, id := range members {
			total += inv.Stock(id)
		}
		t.mu.Lock()
		t.totals[tag] = total
		t.mu.Unlock()
	})
	return t
}

// Total returns the last observed aggregate stock for tag.
func (t *TagTotals) Total(tag string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals[tag]
}

// All returns a copy of every tracked tag total.
func (t *TagTotals) All() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int64, len(t.totals))
	for tag, total := range t.totals {
		out[tag] = total
	}
	return out
}
