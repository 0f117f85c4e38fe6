package generic_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// stock is a minimal quantity type for engine tests: plain int64 addition,
// non-negative check, non-positive means empty.
type stock int64

func (s stock) Add(d stock) stock  { return s + d }
func (s stock) Check(d stock) bool { return s+d >= 0 }
func (s stock) IsEmpty() bool      { return s <= 0 }

func newTestEngine(t *testing.T) *generic.Engine[string, stock] {
	t.Helper()
	eng := generic.New[string, stock]()
	t.Cleanup(eng.Close)
	return eng
}

func d(key string, n int64) generic.Delta[string, stock] {
	return generic.Delta[string, stock]{Key: key, Amount: stock(n)}
}

// changeRecorder collects notifications fired by the processor goroutine.
type changeRecorder struct {
	mu         sync.Mutex
	batches    [][]string
	tagEvents  []string
	tagMembers map[string][]string
}

func recordChanges(eng *generic.Engine[string, stock]) *changeRecorder {
	rec := &changeRecorder{tagMembers: make(map[string][]string)}
	eng.OnInventoryChanged(func(keys []string) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		batch := make([]string, len(keys))
		copy(batch, keys)
		rec.batches = append(rec.batches, batch)
	})
	eng.OnTagChanged(func(tag string, members []string) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.tagEvents = append(rec.tagEvents, tag)
		ms := make([]string, len(members))
		copy(ms, members)
		rec.tagMembers[tag] = ms
	})
	return rec
}

func (r *changeRecorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// =============================================================================
// CHECKED MUTATIONS
// =============================================================================

func TestEngine_CheckedAdd_Applies(t *testing.T) {
	// GIVEN: An empty engine
	// WHEN: A checked add of 5 is applied
	// THEN: The call reports true and the quantity is visible

	eng := newTestEngine(t)
	ctx := context.Background()

	ok, err := eng.Apply(ctx, d("iron", 5))
	require.NoError(t, err)
	assert.True(t, ok)

	qty, present := eng.Quantity("iron")
	assert.True(t, present)
	assert.Equal(t, stock(5), qty)
}

func TestEngine_CheckedRemove_Insufficient_RejectedWhole(t *testing.T) {
	// GIVEN: 2 iron in stock
	// WHEN: A checked remove of 10 is applied
	// THEN: The call reports false and the stock is untouched

	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 2))
	require.NoError(t, err)

	ok, err := eng.Apply(ctx, d("iron", -10))
	require.NoError(t, err)
	assert.False(t, ok)

	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(2), qty)
}

func TestEngine_Batch_AllOrNothing(t *testing.T) {
	// GIVEN: iron=10, plank=15
	// WHEN: A checked batch removes (iron -5, plank -20)
	// THEN: plank is short, so NEITHER key changes

	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 10), d("plank", 15))
	require.NoError(t, err)

	ok, err := eng.Apply(ctx, d("iron", -5), d("plank", -20))
	require.NoError(t, err)
	assert.False(t, ok)

	iron, _ := eng.Quantity("iron")
	plank, _ := eng.Quantity("plank")
	assert.Equal(t, stock(10), iron)
	assert.Equal(t, stock(15), plank)
}

func TestEngine_Batch_SameKeyCheckedCumulatively(t *testing.T) {
	// GIVEN: 5 iron
	// WHEN: One batch removes 3, then 3 more of the same key
	// THEN: The second delta is checked against the first's result, so the
	//       whole batch rejects

	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 5))
	require.NoError(t, err)

	ok, err := eng.Apply(ctx, d("iron", -3), d("iron", -3))
	require.NoError(t, err)
	assert.False(t, ok)

	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(5), qty)
}

func TestEngine_MissingKey_TreatedAsZero(t *testing.T) {
	// WHEN: A checked remove targets a key that was never stocked
	// THEN: It is checked against zero and rejects

	eng := newTestEngine(t)

	ok, err := eng.Apply(context.Background(), d("ghost", -1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, eng.Contains("ghost"))
}

// =============================================================================
// FORCED MUTATIONS
// =============================================================================

func TestEngine_Forced_AlwaysApplies_PrunesEmptyEntries(t *testing.T) {
	// GIVEN: 3 iron
	// WHEN: A forced remove of 10 is applied
	// THEN: It applies regardless, and the now-non-positive entry is
	//       removed from the map entirely

	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 3))
	require.NoError(t, err)

	require.NoError(t, eng.Force(d("iron", -10)))
	require.NoError(t, eng.Flush(ctx))

	assert.False(t, eng.Contains("iron"))
	assert.Equal(t, 0, eng.Len())
}

func TestEngine_Forced_ExactZero_RemovesEntry(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 4))
	require.NoError(t, err)

	ok, err := eng.Apply(ctx, d("iron", -4))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, eng.Contains("iron"), "zero quantity must be pruned, not stored")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestEngine_ConcurrentCheckedAdds_NoLostUpdates(t *testing.T) {
	// GIVEN: N goroutines each applying M checked increments
	// THEN: The final quantity is exactly N*M, serialized application
	//       loses nothing and double-applies nothing

	eng := newTestEngine(t)
	ctx := context.Background()

	const goroutines = 16
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				ok, err := eng.Apply(ctx, d("counter", 1))
				if err != nil || !ok {
					t.Errorf("apply failed: ok=%v err=%v", ok, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	qty, _ := eng.Quantity("counter")
	assert.Equal(t, stock(goroutines*perGoroutine), qty)
}

func TestEngine_ConcurrentWithdrawals_NeverOversell(t *testing.T) {
	// GIVEN: 100 in stock and many racing checked withdrawals of 3
	// THEN: Exactly 33 succeed and 1 remains

	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("gold", 100))
	require.NoError(t, err)

	const attempts = 50
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			ok, err := eng.Apply(ctx, d("gold", -3))
			if err != nil {
				t.Errorf("apply error: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 33, succeeded)

	qty, _ := eng.Quantity("gold")
	assert.Equal(t, stock(1), qty)
}

// =============================================================================
// PAUSE / RESUME
// =============================================================================

func TestEngine_Pause_HoldsQueuedWork_ResumeAppliesInOrder(t *testing.T) {
	// GIVEN: A paused engine and several changes queued during the pause
	// THEN: Nothing applies until Resume; afterwards everything applies in
	//       original submission order

	eng := newTestEngine(t)
	ctx := context.Background()
	rec := recordChanges(eng)

	eng.Pause()
	require.True(t, eng.Paused())

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, eng.Force(d(k, 1)))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, eng.Len(), "paused engine must not apply queued work")
	assert.Equal(t, 0, rec.batchCount())

	eng.Resume()
	require.False(t, eng.Paused())
	require.NoError(t, eng.Flush(ctx))

	assert.Equal(t, 3, eng.Len())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.batches, 3)
	assert.Equal(t, []string{"a"}, rec.batches[0])
	assert.Equal(t, []string{"b"}, rec.batches[1])
	assert.Equal(t, []string{"c"}, rec.batches[2])
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestEngine_Notifications_InventoryThenSortedTags(t *testing.T) {
	// GIVEN: Keys tagged into two groups
	// WHEN: One batch touches keys of both groups
	// THEN: One inventory event fires with the changed keys, then one
	//       event per affected tag in sorted tag order, each carrying the
	//       tag's full member set

	eng := newTestEngine(t)
	ctx := context.Background()
	rec := recordChanges(eng)

	eng.SetTagLookUpTable(map[string]string{
		"iron":  "metal",
		"gold":  "metal",
		"plank": "wood",
	})

	ok, err := eng.Apply(ctx, d("plank", 2), d("iron", 5))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, eng.Flush(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()

	require.Len(t, rec.batches, 1)
	assert.Equal(t, []string{"plank", "iron"}, rec.batches[0])

	require.Equal(t, []string{"metal", "wood"}, rec.tagEvents, "tags fire in sorted order")
	assert.ElementsMatch(t, []string{"iron", "gold"}, rec.tagMembers["metal"])
	assert.ElementsMatch(t, []string{"plank"}, rec.tagMembers["wood"])
}

func TestEngine_RejectedBatch_FiresNoNotification(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	rec := recordChanges(eng)

	ok, err := eng.Apply(ctx, d("iron", -5))
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, eng.Flush(ctx))

	assert.Equal(t, 0, rec.batchCount())
}

func TestEngine_UntaggedKeys_FireNoTagEvents(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	rec := recordChanges(eng)

	ok, err := eng.Apply(ctx, d("mystery", 1))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, eng.Flush(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.batches, 1)
	assert.Empty(t, rec.tagEvents)
}

// =============================================================================
// FLUSH / LIFECYCLE
// =============================================================================

func TestEngine_Flush_ObservesAllPriorChanges(t *testing.T) {
	// GIVEN: A burst of forced changes
	// WHEN: Flush returns
	// THEN: Every change enqueued before the Flush is visible

	eng := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, eng.Force(d("bulk", 1)))
	}
	require.NoError(t, eng.Flush(ctx))

	qty, _ := eng.Quantity("bulk")
	assert.Equal(t, stock(50), qty)
}

func TestEngine_Close_RejectsNewWork_DrainsQueued(t *testing.T) {
	// GIVEN: Work queued at Close time
	// THEN: The queued work still applies (no abandoned handles); new work
	//       is rejected with ErrEngineClosed

	eng := generic.New[string, stock]()

	require.NoError(t, eng.Force(d("iron", 5)))
	eng.Close()

	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(5), qty, "queued change must be drained by Close")

	err := eng.Force(d("iron", 1))
	assert.ErrorIs(t, err, generic.ErrEngineClosed)

	_, err = eng.Apply(context.Background(), d("iron", 1))
	assert.ErrorIs(t, err, generic.ErrEngineClosed)

	// Close is idempotent.
	eng.Close()
}

func TestEngine_PauseAfterClose_IsNoOp(t *testing.T) {
	// GIVEN: A closed engine
	// WHEN: Pause is called
	// THEN: The gate stays open, so a shutdown drain can never be wedged
	//       by a late pause

	eng := generic.New[string, stock]()
	require.NoError(t, eng.Force(d("iron", 2)))
	eng.Close()

	eng.Pause()
	assert.False(t, eng.Paused())

	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(2), qty)
}

func TestEngine_ClosedWhilePaused_StillDrains(t *testing.T) {
	eng := generic.New[string, stock]()
	eng.Pause()
	require.NoError(t, eng.Force(d("iron", 2)))

	eng.Close() // must not hang on the closed gate

	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(2), qty)
}

func TestEngine_ProcessorFault_FailsAwaitingCaller(t *testing.T) {
	// GIVEN: An observer that panics during notification
	// WHEN: A checked change triggers it
	// THEN: The caller gets ErrEngineFault instead of waiting forever, the
	//       halted engine rejects new work, and Close does not hang

	eng := generic.New[string, stock]()
	eng.OnInventoryChanged(func([]string) { panic("observer blew up") })

	_, err := eng.Apply(context.Background(), d("iron", 1))
	require.ErrorIs(t, err, generic.ErrEngineFault)

	err = eng.Force(d("iron", 1))
	assert.ErrorIs(t, err, generic.ErrEngineClosed)

	eng.Close()
}

func TestEngine_ProcessorFault_FailsQueuedCallers(t *testing.T) {
	// Changes queued behind the faulting one must also resolve, not hang.

	eng := generic.New[string, stock]()
	eng.OnInventoryChanged(func([]string) { panic("observer blew up") })
	eng.Pause()

	const callers = 3
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := eng.Apply(context.Background(), d("iron", 1))
			results <- err
		}()
	}
	require.Eventually(t, func() bool { return eng.PendingChanges() >= callers-1 },
		time.Second, 5*time.Millisecond)

	eng.Resume()

	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, <-results, generic.ErrEngineFault)
	}
	eng.Close()
}

func TestEngine_Snapshot_IsIndependentCopy(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, d("iron", 5))
	require.NoError(t, err)

	snap := eng.Snapshot()
	_, err = eng.Apply(ctx, d("iron", 5))
	require.NoError(t, err)

	assert.Equal(t, stock(5), snap["iron"], "snapshot must not track later mutations")
	qty, _ := eng.Quantity("iron")
	assert.Equal(t, stock(10), qty)
}
