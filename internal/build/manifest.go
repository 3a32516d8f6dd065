package build

import (
	"encoding/json"

	"github.com/dreamware/petals/internal/filter"
)

// ManifestEntry records where one column's filter landed and what
// variant built it. It is purely informational — the catalog rebuilds
// its view from the blob layout directly, not from the manifest.
type ManifestEntry struct {
	FilterType   filter.Kind `json:"filter_type"`
	RelativePath string      `json:"relative_path"`
}

// Manifest is the per-store document produced at the end of a build run,
// written to stores_metadata/<store>.json.
type Manifest struct {
	Store   string                    `json:"-"`
	Columns map[string]ManifestEntry `json:"columns"`
}

// NewManifest returns an empty manifest for store.
func NewManifest(store string) *Manifest {
	return &Manifest{Store: store, Columns: make(map[string]ManifestEntry)}
}

// Record adds one column's outcome to the manifest. column is
// shard-qualified ("<shard>/<column>") since a manifest spans every shard
// in the store.
func (m *Manifest) Record(shard, column string, entry ManifestEntry) {
	m.Columns[shard+"/"+column] = entry
}

// MarshalJSON renders the manifest as {"<shard>/<column>":
// {"filter_type": "...", "relative_path": "..."}}, one entry per recorded
// shard column.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Columns)
}
