/*
tags.go - Tag table and derived tag index

PURPOSE:
  Keys can carry an externally assigned grouping label (a tag). Tags exist
  purely for aggregated change notification: when a batch touches keys in a
  tag, observers receive that tag's full current member set alongside the
  per-key event.

AUTHORITATIVE vs DERIVED:
  The key->tag table is authoritative and supplied wholesale by the caller.
  The tag->keys index is derived and rebuilt in full on every replacement;
  it is never updated incrementally, so it can never drift or end up
  partially updated. A key absent from the new table loses its tag.

CONCURRENCY:
  Replacement takes the same lock the processor holds while applying a
  batch. The next notification after a replacement uses the new index; no
  notification ever mixes member sets from two generations.

SEE ALSO:
  - processor.go: affectedTagsLocked reads both structures
*/
package generic

import "sort"

// SetTagLookUpTable atomically replaces the key->tag table and recomputes
// the tag index by grouping the new table by tag value. The table is
// copied; the caller keeps ownership of its map. Safe to call while
// mutation processing is running.
func (e *Engine[K, V]) SetTagLookUpTable(table map[K]string) {
	tagTable := make(map[K]string, len(table))
	tagIndex := make(map[string]map[K]struct{})
	for k, tag := range table {
		tagTable[k] = tag
		set, ok := tagIndex[tag]
		if !ok {
			set = make(map[K]struct{})
			tagIndex[tag] = set
		}
		set[k] = struct{}{}
	}

	e.mu.Lock()
	e.tagTable = tagTable
	e.tagIndex = tagIndex
	e.mu.Unlock()
}

// TagOf returns the tag assigned to key, if any.
func (e *Engine[K, V]) TagOf(key K) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tag, ok := e.tagTable[key]
	return tag, ok
}

// TagMembers returns the keys currently grouped under tag. Membership
// follows the tag table, not the stocked map: a member with zero stock is
// still listed.
func (e *Engine[K, V]) TagMembers(tag string) []K {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.tagIndex[tag]
	if len(set) == 0 {
		return nil
	}
	members := make([]K, 0, len(set))
	for k := range set {
		members = append(members, k)
	}
	return members
}

// TagNames returns all known tags in sorted order.
func (e *Engine[K, V]) TagNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tagIndex))
	for tag := range e.tagIndex {
		names = append(names, tag)
	}
	sort.Strings(names)
	return names
}
