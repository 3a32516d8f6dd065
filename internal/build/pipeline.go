package build

import (
	"context"
	"fmt"

	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/petalserr"
	"github.com/dreamware/petals/internal/storage"
)

// Config holds everything the pipeline needs beyond the DataSource and
// Backend it's given at Run time.
type Config struct {
	StoreName       string
	IncludedColumns map[string]bool
	ColumnTypes     map[string]filter.Type
	Overrides       map[string]filter.Kind
	Thresholds      Thresholds
	Params          Params
	SampleCap       int
}

// DefaultConfig returns a Config with default thresholds, params, and an
// unbounded column inclusion set (index every column).
func DefaultConfig(storeName string) Config {
	return Config{
		StoreName:  storeName,
		Thresholds: DefaultThresholds(),
		Params:     DefaultParams(),
		SampleCap:  20000,
	}
}

// Pipeline walks a DataSource, builds one filter per in-scope column per
// shard, and writes the serialized result to backend, accumulating a
// manifest as it goes.
type Pipeline struct {
	backend storage.Backend
	cfg     Config
}

// New returns a Pipeline that writes to backend under cfg.
func New(backend storage.Backend, cfg Config) *Pipeline {
	return &Pipeline{backend: backend, cfg: cfg}
}

// ColumnError records a single column's build failure. The pipeline
// collects these rather than aborting: per spec, a failure on one
// file/column does not stop the others from proceeding.
type ColumnError struct {
	Shard  string
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Shard, e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// Run walks every shard in source, builds a filter for each in-scope
// column, writes it to the backend at
// <StoreName>/<shard>/<column>.blob, and returns the accumulated
// manifest plus every per-column error encountered along the way.
func (p *Pipeline) Run(ctx context.Context, source DataSource) (*Manifest, []*ColumnError) {
	manifest := NewManifest(p.cfg.StoreName)
	var errs []*ColumnError

	shards, err := source.Shards()
	if err != nil {
		return manifest, []*ColumnError{{Err: err}}
	}

	for _, shard := range shards {
		schema, err := shard.Schema()
		if err != nil {
			errs = append(errs, &ColumnError{Shard: shard.Name(), Err: err})
			continue
		}
		if len(schema) == 0 {
			continue
		}

		for _, col := range schema {
			if len(p.cfg.IncludedColumns) > 0 && !p.cfg.IncludedColumns[col.Name] {
				continue
			}
			if err := p.buildColumn(ctx, shard, col, manifest); err != nil {
				errs = append(errs, &ColumnError{Shard: shard.Name(), Column: col.Name, Err: err})
			}
		}
	}

	return manifest, errs
}

func (p *Pipeline) buildColumn(ctx context.Context, shard ShardSource, col ColumnSchema, manifest *Manifest) error {
	logical := col.Type
	if t, ok := p.cfg.ColumnTypes[col.Name]; ok {
		logical = t
	}

	newIter, err := shard.Open(col.Name, logical)
	if err != nil {
		return err
	}

	kind, ok := p.cfg.Overrides[col.Name]
	if !ok {
		sampleIter, err := newIter()
		if err != nil {
			return err
		}
		stats, err := SampleColumn(sampleIter, p.cfg.SampleCap)
		if err != nil {
			return err
		}
		stats.DominantType = logical
		kind, err = SelectStrategy(stats, p.cfg.Thresholds)
		if err != nil {
			return err
		}
	}

	construct, ok := Registry[kind]
	if !ok {
		return petalserr.Newf(petalserr.KindUnsupportedColumnType, "no constructor registered for %s", kind)
	}

	f, err := construct(newIter, p.cfg.Params)
	if err != nil {
		return err
	}

	blob, err := f.Serialize()
	if err != nil {
		return err
	}

	relPath := fmt.Sprintf("%s/%s/%s.blob", p.cfg.StoreName, shard.Name(), col.Name)
	if err := p.backend.Write(ctx, relPath, blob); err != nil {
		return petalserr.Wrap(petalserr.KindBackendUnavailable, relPath, err)
	}

	manifest.Record(shard.Name(), col.Name, ManifestEntry{FilterType: kind, RelativePath: relPath})
	return nil
}
