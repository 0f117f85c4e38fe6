/*
Package sqlite provides a SQLite-backed DocumentStore with save history.

PURPOSE:
  Persists save documents as append-only rows in a single table. Read
  returns the newest row, so the engine sees the same "current document"
  contract the file store offers, while every earlier save remains
  queryable for audit or manual rollback.

ATOMICITY:
  Each Write is a single INSERT inside SQLite's own transaction; a crash
  either commits the new row or leaves the previous generation as the
  newest one. There is no window with a half-written current document.

KEY TABLE:
  saves:
    id          INTEGER PRIMARY KEY  (monotonic generation number)
    version     TEXT                 (document version tag, for querying)
    document    BLOB                 (the encoded save document)
    created_at  TEXT                 (RFC3339)

WAL MODE:
  Opened with WAL for better concurrency and crash recovery, matching how
  the rest of the project uses SQLite.

HISTORY:
  History() lists recent generations newest-first; Prune(keep) deletes all
  but the newest `keep` rows. Pruning never touches the current document.

USAGE:
  st, err := sqlite.New("./data/inventory.db")
  defer st.Close()
  err = eng.Save(ctx, st)

SEE ALSO:
  - generic/persist.go: DocumentStore contract
  - store/file: flat-file alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/inventory-engine/generic"
)

// Store implements generic.DocumentStore on a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Save documents (append-only; newest row is the current document)
	CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		document BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_created_at ON saves(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Write appends doc as the new current generation. The version tag is
// lifted out of the document for querying; an undecodable document is
// still stored, with an empty version.
func (s *Store) Write(ctx context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var envelope struct {
		Version string `json:"version"`
	}
	_ = json.Unmarshal(doc, &envelope)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (version, document, created_at) VALUES (?, ?, ?)`,
		envelope.Version, doc, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert save: %w", err)
	}
	return nil
}

// Read returns the newest document, or generic.ErrSaveNotFound when the
// table is empty.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM saves ORDER BY id DESC LIMIT 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrSaveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select save: %w", err)
	}
	return doc, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// Generation describes one archived save.
type Generation struct {
	ID        int64
	Version   string
	Size      int
	CreatedAt time.Time
}

// History returns up to limit generations, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, LENGTH(document), created_at FROM saves ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		var g Generation
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Version, &g.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("scan save row: %w", err)
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// Prune deletes all but the newest keep generations.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM saves WHERE id NOT IN (SELECT id FROM saves ORDER BY id DESC LIMIT ?)`,
		keep)
	if err != nil {
		return fmt.Errorf("prune saves: %w", err)
	}
	return nil
}

var _ generic.DocumentStore = (*Store)(nil)
