// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/inventory-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds the current save document in process memory. Useful for
// tests and for callers that want save/load semantics without any disk
// footprint.
type Memory struct {
	mu  sync.RWMutex
	doc []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

// Write replaces the current document.
func (m *Memory) Write(_ context.Context, doc []byte) error {
	cp := make([]byte, len(doc))
	copy(cp, doc)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = cp
	return nil
}

// Read returns the current document, or generic.ErrSaveNotFound if none
// has been written.
func (m *Memory) Read(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, generic.ErrSaveNotFound
	}
	cp := make([]byte, len(m.doc))
	copy(cp, m.doc)
	return cp, nil
}

// Compile-time interface check.
var _ generic.DocumentStore = (*Memory)(nil)
