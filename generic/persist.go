/*
persist.go - Save/load orchestration and the DocumentStore interface

PURPOSE:
  Snapshots the inventory to a versioned document and restores it, in a
  way that stays consistent with concurrently arriving mutations. The
  engine handles the WHEN (barrier, snapshot, queue discard, map install);
  a DocumentStore handles the WHERE (atomic file, SQLite archive, memory).

SAVE SEMANTICS:
  Save observes "at least everything submitted-and-acknowledged before the
  call": it enqueues a zero-delta barrier and waits for it, so every prior
  mutation is in the snapshot. Mutations racing with the Save call may or
  may not be included - an explicit design choice, not a defect.

LOAD SEMANTICS:
  Load replaces the map wholesale. Queued-but-unprocessed changes are
  discarded, not applied to the old map and not merged into the new one;
  their completion handles resolve with ErrChangeDiscarded so no caller is
  left waiting forever. Version negotiation: a document whose version
  differs from the engine's needs a registered Migration, otherwise the
  load fails with UnsupportedVersionError.

MUTUAL EXCLUSION:
  Save and Load share one mutex. Only one save-or-load runs at a time;
  concurrent callers queue for the lock, they never interleave.

IMPLEMENTATIONS:
  - store/file:   atomic write via .tmp + rename, previous save kept as .bak
  - store/sqlite: append-only archive table, Read returns the latest row
  - generic/store: in-memory, for tests

SEE ALSO:
  - types.go: SaveDocument / Migration
  - store/file/file.go, store/sqlite/sqlite.go
*/
package generic

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// DOCUMENT STORE - Interface for save-document persistence
// =============================================================================

// DocumentStore reads and writes opaque, already-encoded save documents.
// Implementations own atomicity and durability of the medium; the engine
// owns encoding and consistency with the mutation stream.
type DocumentStore interface {
	// Write persists one document, replacing the previous one as the
	// store's notion of "current". Must be atomic: a crash mid-write may
	// lose the new document but never corrupt the old one.
	Write(ctx context.Context, doc []byte) error

	// Read returns the current document, or ErrSaveNotFound if the store
	// holds none.
	Read(ctx context.Context) ([]byte, error)
}

// =============================================================================
// SAVE
// =============================================================================

// Save snapshots the inventory into store, stamped with the engine's
// configured version.
func (e *Engine[K, V]) Save(ctx context.Context, store DocumentStore) error {
	return e.SaveVersion(ctx, store, e.version)
}

// SaveVersion is Save with an explicit version tag, for writing documents
// a differently-versioned consumer will migrate on its side.
func (e *Engine[K, V]) SaveVersion(ctx context.Context, store DocumentStore, version string) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	// Barrier: everything enqueued before this call lands in the snapshot.
	if err := e.Flush(ctx); err != nil {
		return fmt.Errorf("await queue drain: %w", err)
	}

	snap := e.Snapshot()
	doc := SaveDocument[K, V]{
		Version: version,
		Items:   make([]SavedItem[K, V], 0, len(snap)),
	}
	for k, v := range snap {
		doc.Items = append(doc.Items, SavedItem[K, V]{Key: k, Qty: v})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode save document: %w", err)
	}
	if err := store.Write(ctx, data); err != nil {
		return fmt.Errorf("write save document: %w", err)
	}

	e.logger.Info("inventory saved",
		zap.String("version", version),
		zap.Int("items", len(doc.Items)))
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the current document from store and installs it as the new
// inventory. See the file header for discard and versioning semantics.
func (e *Engine[K, V]) Load(ctx context.Context, store DocumentStore) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	data, err := store.Read(ctx)
	if err != nil {
		return err
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return &DecodeError{Err: err}
	}

	var items map[K]V
	if raw.Version == e.version {
		var saved []SavedItem[K, V]
		if err := json.Unmarshal(raw.Items, &saved); err != nil {
			return &DecodeError{Version: raw.Version, Err: err}
		}
		items = make(map[K]V, len(saved))
		for _, it := range saved {
			if !it.Qty.IsEmpty() {
				items[it.Key] = it.Qty
			}
		}
	} else {
		if e.migrate == nil {
			return &UnsupportedVersionError{Version: raw.Version, Base: e.version}
		}
		items, err = e.migrate(raw.Version, raw.Items)
		if err != nil {
			return fmt.Errorf("migrate save version %q: %w", raw.Version, err)
		}
		// Migrations produce whatever they like; the no-empty-entries
		// invariant still holds after install.
		for k, v := range items {
			if v.IsEmpty() {
				delete(items, k)
			}
		}
	}
	if items == nil {
		items = make(map[K]V)
	}

	// Abandon in-flight queued work. Handles resolve as failed rather than
	// hanging; the old map they targeted is about to disappear.
	discarded := e.queue.discardAll()
	for _, c := range discarded {
		c.resolve(ErrChangeDiscarded)
	}

	e.mu.Lock()
	e.items = items
	e.mu.Unlock()

	e.logger.Info("inventory loaded",
		zap.String("version", raw.Version),
		zap.Int("items", len(items)),
		zap.Int("discarded_changes", len(discarded)))
	return nil
}
