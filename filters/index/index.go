// Package index stores compiled filters and answers the reverse question a
// document store cannot: given a document, which registered filters match it.
//
// Filters are refcounted by canonical key. Single-term filters get posting
// bitmaps keyed by (field, value) so the common case is a few map lookups;
// everything else lands in a residual set that is evaluated per document.
package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/matchgo/document"
	"github.com/hupe1980/matchgo/filters"
)

// FilterID identifies one registered filter. IDs are never reused while the
// filter is referenced; after the refcount drops to zero the id is retired.
type FilterID uint32

// Scope is the (index, collection) pair a filter is registered against.
type Scope struct {
	Index      string
	Collection string
}

type entry struct {
	id    FilterID
	key   string
	node  *filters.Node
	scope Scope
	refs  int
}

// scopeIndex holds the compiled filters of one (index, collection).
type scopeIndex struct {
	all      *roaring.Bitmap
	matchAll *roaring.Bitmap
	// postings maps field -> value key -> filter ids, for filters that are a
	// single top-level term predicate.
	postings map[string]map[string]*roaring.Bitmap
	residual *roaring.Bitmap
}

func newScopeIndex() *scopeIndex {
	return &scopeIndex{
		all:      roaring.New(),
		matchAll: roaring.New(),
		postings: make(map[string]map[string]*roaring.Bitmap),
		residual: roaring.New(),
	}
}

// Index is the compiled filter index. All methods are safe for concurrent
// use; Test sees every filter either fully inserted or fully absent.
type Index struct {
	mu     sync.RWMutex
	nextID FilterID
	byKey  map[string]*entry
	byID   map[FilterID]*entry
	scopes map[Scope]*scopeIndex
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		byKey:  make(map[string]*entry),
		byID:   make(map[FilterID]*entry),
		scopes: make(map[Scope]*scopeIndex),
	}
}

// Add registers a canonicalized filter under its canonical key and returns
// its id. Adding a key that is already present increments its refcount and
// returns the existing id, so concurrent adds for the same key converge on
// one filter.
func (ix *Index) Add(key string, node *filters.Node, index, collection string) FilterID {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if e, ok := ix.byKey[key]; ok {
		e.refs++
		return e.id
	}

	ix.nextID++
	e := &entry{
		id:    ix.nextID,
		key:   key,
		node:  node,
		scope: Scope{Index: index, Collection: collection},
		refs:  1,
	}
	ix.byKey[key] = e
	ix.byID[e.id] = e

	sc, ok := ix.scopes[e.scope]
	if !ok {
		sc = newScopeIndex()
		ix.scopes[e.scope] = sc
	}
	sc.all.Add(uint32(e.id))

	switch {
	case node == nil:
		sc.matchAll.Add(uint32(e.id))
	case node.Op == filters.OpTerm && node.Value.Kind != document.KindArray:
		byValue, ok := sc.postings[node.Field]
		if !ok {
			byValue = make(map[string]*roaring.Bitmap)
			sc.postings[node.Field] = byValue
		}
		vk := node.Value.Key()
		ids, ok := byValue[vk]
		if !ok {
			ids = roaring.New()
			byValue[vk] = ids
		}
		ids.Add(uint32(e.id))
	default:
		sc.residual.Add(uint32(e.id))
	}

	return e.id
}

// Remove decrements the refcount of a filter and physically drops its
// fragments once the count reaches zero. Removing an unknown id is a no-op.
func (ix *Index) Remove(id FilterID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.byID[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}

	delete(ix.byKey, e.key)
	delete(ix.byID, e.id)

	sc := ix.scopes[e.scope]
	if sc == nil {
		return
	}
	sc.all.Remove(uint32(e.id))
	sc.matchAll.Remove(uint32(e.id))
	sc.residual.Remove(uint32(e.id))
	if e.node != nil && e.node.Op == filters.OpTerm {
		if byValue, ok := sc.postings[e.node.Field]; ok {
			vk := e.node.Value.Key()
			if ids, ok := byValue[vk]; ok {
				ids.Remove(uint32(e.id))
				if ids.IsEmpty() {
					delete(byValue, vk)
				}
			}
			if len(byValue) == 0 {
				delete(sc.postings, e.node.Field)
			}
		}
	}
	if sc.all.IsEmpty() {
		delete(ix.scopes, e.scope)
	}
}

// Test evaluates every filter registered for (index, collection) against the
// document and returns the matching ids in ascending order.
func (ix *Index) Test(index, collection string, doc document.Document) []FilterID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	sc, ok := ix.scopes[Scope{Index: index, Collection: collection}]
	if !ok {
		return nil
	}

	result := sc.matchAll.Clone()

	for field, byValue := range sc.postings {
		v, ok := doc.Lookup(field)
		if !ok {
			continue
		}
		if ids, ok := byValue[v.Key()]; ok {
			result.Or(ids)
		}
		// Array fields match a term posting when any element does.
		if arr, isArr := v.AsArray(); isArr {
			for i := range arr {
				if ids, ok := byValue[arr[i].Key()]; ok {
					result.Or(ids)
				}
			}
		}
	}

	it := sc.residual.Iterator()
	for it.HasNext() {
		id := it.Next()
		if e, ok := ix.byID[FilterID(id)]; ok && filters.Match(e.node, doc) {
			result.Add(id)
		}
	}

	if result.IsEmpty() {
		return nil
	}
	out := make([]FilterID, 0, result.GetCardinality())
	rit := result.Iterator()
	for rit.HasNext() {
		out = append(out, FilterID(rit.Next()))
	}
	return out
}

// Key returns the canonical key a filter id was registered under.
func (ix *Index) Key(id FilterID) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.byID[id]
	if !ok {
		return "", false
	}
	return e.key, true
}

// Refs returns the current refcount of a filter id, zero for unknown ids.
func (ix *Index) Refs(id FilterID) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.byID[id]
	if !ok {
		return 0
	}
	return e.refs
}

// Len returns the number of distinct registered filters.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byKey)
}
