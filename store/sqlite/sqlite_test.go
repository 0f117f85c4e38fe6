package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-engine/generic"
	"github.com/warp/inventory-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_WriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	doc := []byte(`{"version":"1","items":[{"key":"iron","qty":5}]}`)
	require.NoError(t, st.Write(ctx, doc))

	got, err := st.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestSQLiteStore_ReadEmptyTable(t *testing.T) {
	st := newStore(t)

	_, err := st.Read(context.Background())
	assert.ErrorIs(t, err, generic.ErrSaveNotFound)
}

func TestSQLiteStore_ReadReturnsNewestGeneration(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.Write(ctx, []byte(`{"version":"1","gen":1}`)))
	require.NoError(t, st.Write(ctx, []byte(`{"version":"1","gen":2}`)))

	got, err := st.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1","gen":2}`, string(got))
}

func TestSQLiteStore_History(t *testing.T) {
	// GIVEN: Three saved generations
	// THEN: History lists them newest-first with version tags and sizes

	ctx := context.Background()
	st := newStore(t)

	for i := 1; i <= 3; i++ {
		doc := fmt.Sprintf(`{"version":"1","gen":%d}`, i)
		require.NoError(t, st.Write(ctx, []byte(doc)))
	}

	gens, err := st.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gens, 3)

	assert.Greater(t, gens[0].ID, gens[1].ID)
	assert.Greater(t, gens[1].ID, gens[2].ID)
	for _, g := range gens {
		assert.Equal(t, "1", g.Version)
		assert.Greater(t, g.Size, 0)
		assert.False(t, g.CreatedAt.IsZero())
	}

	limited, err := st.History(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_PruneKeepsNewest(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, st.Write(ctx, []byte(fmt.Sprintf(`{"version":"1","gen":%d}`, i))))
	}

	require.NoError(t, st.Prune(ctx, 2))

	gens, err := st.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gens, 2)

	// The current document survives pruning.
	got, err := st.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1","gen":5}`, string(got))
}

func TestSQLiteStore_PruneFloorsAtOne(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.Write(ctx, []byte(`{"version":"1"}`)))
	require.NoError(t, st.Write(ctx, []byte(`{"version":"1","x":1}`)))

	require.NoError(t, st.Prune(ctx, 0))

	gens, err := st.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, gens, 1)
}

func TestSQLiteStore_UndecodableDocumentStillStored(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	raw := []byte("not json at all")
	require.NoError(t, st.Write(ctx, raw))

	got, err := st.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	gens, err := st.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Empty(t, gens[0].Version)
}
