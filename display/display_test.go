package display_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/inventory-engine/display"
	"github.com/warp/inventory-engine/items"
)

func newInventory(t *testing.T) *items.Inventory {
	t.Helper()
	inv := items.New()
	t.Cleanup(inv.Close)
	return inv
}

func TestAttach_LogsBatchAndTagEvents(t *testing.T) {
	// GIVEN: An inventory with logging observers attached
	// WHEN: A batch touches a tagged key
	// THEN: One batch line and one tag line are emitted

	core, logs := observer.New(zap.InfoLevel)
	inv := newInventory(t)
	inv.SetTagLookUpTable(map[items.ItemID]string{"sword": "weapon"})
	display.Attach(inv.Engine, zap.New(core))

	ctx := context.Background()
	ok, err := inv.Add(ctx, "sword", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, inv.Flush(ctx))

	batchLines := logs.FilterMessage("inventory updated").All()
	require.Len(t, batchLines, 1)
	assert.Equal(t, int64(1), batchLines[0].ContextMap()["changed"])

	tagLines := logs.FilterMessage("tag updated").All()
	require.Len(t, tagLines, 1)
	assert.Equal(t, "weapon", tagLines[0].ContextMap()["tag"])
}

func TestAttach_NilLoggerIsSafe(t *testing.T) {
	inv := newInventory(t)
	display.Attach(inv.Engine, nil)

	ok, err := inv.Add(context.Background(), "sword", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTagTotals_TracksAggregatePerTag(t *testing.T) {
	// GIVEN: Two weapons and one consumable
	// WHEN: Stock moves
	// THEN: The per-tag totals follow

	inv := newInventory(t)
	inv.SetTagLookUpTable(map[items.ItemID]string{
		"sword":  "weapon",
		"bow":    "weapon",
		"potion": "consumable",
	})
	totals := display.NewTagTotals(inv)

	ctx := context.Background()
	ok, err := inv.AddBatch(ctx, []items.Stack{
		{ID: "sword", Qty: 4},
		{ID: "bow", Qty: 2},
		{ID: "potion", Qty: 7},
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, inv.Flush(ctx))

	assert.Equal(t, int64(6), totals.Total("weapon"))
	assert.Equal(t, int64(7), totals.Total("consumable"))

	ok, err = inv.Remove(ctx, "sword", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, inv.Flush(ctx))

	assert.Equal(t, int64(3), totals.Total("weapon"))
	assert.Equal(t, map[string]int64{
		"weapon":     3,
		"consumable": 7,
	}, totals.All())
}

func TestTagTotals_UnknownTagIsZero(t *testing.T) {
	inv := newInventory(t)
	totals := display.NewTagTotals(inv)

	assert.Equal(t, int64(0), totals.Total("nothing"))
	assert.Empty(t, totals.All())
}
