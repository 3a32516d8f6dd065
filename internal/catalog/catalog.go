// Package catalog implements the index catalog: a path-addressed,
// lazily-materialized map from (store, shard, column) to a filter,
// backed by a path trie and a storage.Backend.
package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/exp/slices"

	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/petalserr"
	"github.com/dreamware/petals/internal/storage"
	"github.com/dreamware/petals/internal/trie"
)

// slot is a catalog value cell: either unloaded (known to exist on the
// backend at relativePath, not yet deserialized) or loaded (a concrete
// filter ready to probe). The zero→loaded transition is guarded by mu and
// is idempotent — double materialization wastes a read, it never
// corrupts state.
type slot struct {
	mu           sync.Mutex
	relativePath string
	f            filter.Filter
	loaded       bool
}

// Catalog is the in-memory index of every known (store, shard, column)
// key, backed by a path trie whose terminal values are *slot cells.
type Catalog struct {
	tree    *trie.Trie
	backend storage.Backend
}

// New returns an empty Catalog reading lazily from backend.
func New(backend storage.Backend) *Catalog {
	return &Catalog{tree: trie.New(), backend: backend}
}

// RegisterPlaceholder indexes a key as known-but-unloaded, pointing at
// relativePath on the backend. It is idempotent: re-registering the same
// key resets it to unloaded, discarding any previously materialized
// filter — callers doing a fresh enumeration pass call this once per
// discovered blob.
func (c *Catalog) RegisterPlaceholder(key [3]string, relativePath string) {
	c.tree.Insert(key[:], &slot{relativePath: relativePath})
}

// LoadFromBackend walks every blob under prefix on the backend and
// registers each as a placeholder keyed by its path segments, matching
// the on-disk/blob-store layout <store>/<shard>/<column>.blob.
func (c *Catalog) LoadFromBackend(ctx context.Context, prefix string) error {
	paths, err := c.backend.Enumerate(ctx, prefix)
	if err != nil {
		return petalserr.Wrap(petalserr.KindBackendUnavailable, prefix, err)
	}
	for _, p := range paths {
		key, ok := parseBlobPath(p)
		if !ok {
			continue
		}
		c.RegisterPlaceholder(key, p)
	}
	return nil
}

func parseBlobPath(relativePath string) ([3]string, bool) {
	const suffix = ".blob"
	if !strings.HasSuffix(relativePath, suffix) {
		return [3]string{}, false
	}
	trimmed := strings.TrimSuffix(relativePath, suffix)
	segs := strings.Split(trimmed, "/")
	if len(segs) != 3 {
		return [3]string{}, false
	}
	return [3]string{segs[0], segs[1], segs[2]}, true
}

// materialize returns the concrete filter at key, loading and caching it
// on first call. Subsequent calls for the same key return the cached
// filter without touching the backend again.
func (c *Catalog) materialize(ctx context.Context, key [3]string) (filter.Filter, error) {
	v, ok := c.tree.Search(key[:])
	if !ok {
		return nil, nil
	}
	s := v.(*slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.f, nil
	}

	blob, err := c.backend.Read(ctx, s.relativePath)
	if err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, s.relativePath, err)
	}
	f, err := filter.Deserialize(blob)
	if err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, s.relativePath, err)
	}
	s.f = f
	s.loaded = true
	return f, nil
}

// ShardMatch pairs a candidate shard name with the column segment whose
// name matched the field prefix, so callers (the evaluator) can probe
// that exact key without re-deriving it.
type ShardMatch struct {
	Shard  string
	Column string
}

// FindShards enumerates every catalog key under store whose column
// segment begins with field. It neither materializes nor probes the
// filters — callers combine FindShards with a value to
// do that; FindShards exists separately so the evaluator can also use it
// to discover "does this field have any index at all" without a probe
// value in hand.
func (c *Catalog) FindShards(store, field string) []ShardMatch {
	var matches []ShardMatch

	c.tree.Walk(func(path []string, _ any) {
		if len(path) != 3 {
			return
		}
		if path[0] != store || !strings.HasPrefix(path[2], field) {
			return
		}
		matches = append(matches, ShardMatch{Shard: path[1], Column: path[2]})
	})
	return matches
}

// Probe materializes the filter at (store, shard, column) and tests it
// against value, returning whether the shard may contain a qualifying
// row.
func (c *Catalog) Probe(ctx context.Context, store, shard, column string, value filter.Value) (bool, error) {
	key := [3]string{store, shard, column}
	f, err := c.materialize(ctx, key)
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	return f.Test(value)
}

// ShardSet is a roaring-bitmap-backed set of shard ordinals scoped to a
// single store, used by the predicate evaluator to intersect/union atom
// results without repeated string-set allocation.
type ShardSet struct {
	store  *ShardOrdinals
	bitmap *roaring.Bitmap
}

// ShardOrdinals assigns a stable, store-scoped integer to every shard
// name the catalog has seen, so shard-set algebra can run over a roaring
// bitmap instead of a map[string]struct{}.
type ShardOrdinals struct {
	mu        sync.RWMutex
	toOrdinal map[string]uint32
	toName    []string
}

// NewShardOrdinals returns an empty ordinal table.
func NewShardOrdinals() *ShardOrdinals {
	return &ShardOrdinals{toOrdinal: make(map[string]uint32)}
}

// Ordinal returns the stable ordinal for name, assigning a fresh one on
// first sight.
func (o *ShardOrdinals) Ordinal(name string) uint32 {
	o.mu.RLock()
	if ord, ok := o.toOrdinal[name]; ok {
		o.mu.RUnlock()
		return ord
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	if ord, ok := o.toOrdinal[name]; ok {
		return ord
	}
	ord := uint32(len(o.toName))
	o.toOrdinal[name] = ord
	o.toName = append(o.toName, name)
	return ord
}

// Name returns the shard name for ordinal.
func (o *ShardOrdinals) Name(ordinal uint32) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.toName[ordinal]
}

// NewShardSet returns an empty ShardSet scoped to ordinals.
func NewShardSet(ordinals *ShardOrdinals) *ShardSet {
	return &ShardSet{store: ordinals, bitmap: roaring.New()}
}

// Add inserts shard into the set.
func (s *ShardSet) Add(shard string) {
	s.bitmap.Add(s.store.Ordinal(shard))
}

// Names returns every shard name currently in the set, sorted
// lexicographically so callers (and tests) get a stable result regardless
// of bitmap iteration or map ordering.
func (s *ShardSet) Names() []string {
	out := make([]string, 0, s.bitmap.GetCardinality())
	it := s.bitmap.Iterator()
	for it.HasNext() {
		out = append(out, s.store.Name(it.Next()))
	}
	slices.SortFunc(out, func(a, b string) int { return strings.Compare(a, b) })
	return out
}

// Intersect returns a new ShardSet containing shards present in both s
// and other.
func (s *ShardSet) Intersect(other *ShardSet) *ShardSet {
	return &ShardSet{store: s.store, bitmap: roaring.And(s.bitmap, other.bitmap)}
}

// Union returns a new ShardSet containing shards present in either s or
// other.
func (s *ShardSet) Union(other *ShardSet) *ShardSet {
	return &ShardSet{store: s.store, bitmap: roaring.Or(s.bitmap, other.bitmap)}
}
