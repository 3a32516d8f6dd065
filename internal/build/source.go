package build

import (
	"io"

	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/tabular"
)

// ColumnSchema describes one column discovered on a shard: its name and
// the logical type the pipeline should coerce it to.
type ColumnSchema struct {
	Name string
	Type filter.Type
}

// ShardSource is one physical file (or blob) worth of tabular data. Schema
// peeks at the column list without consuming a build-quality pass; Open
// returns a fresh-iterator supplier suitable for both the sampling pass
// and the filter constructor's own pass(es).
type ShardSource interface {
	Name() string
	Schema() ([]ColumnSchema, error)
	Open(column string, logical filter.Type) (func() (filter.ColumnChunkIterator, error), error)
}

// DataSource enumerates the shards under a data directory (or other
// tabular source root) that the pipeline should index.
type DataSource interface {
	Shards() ([]ShardSource, error)
}

// csvShard adapts one CSV file to ShardSource.
type csvShard struct {
	name      string
	open      func() (io.ReadCloser, error)
	chunkSize int
}

// NewCSVShard returns a ShardSource backed by a CSV file, where open
// returns a fresh reader positioned at the start of the file on every
// call.
func NewCSVShard(name string, open func() (io.ReadCloser, error), chunkSize int) ShardSource {
	return &csvShard{name: name, open: open, chunkSize: chunkSize}
}

func (s *csvShard) Name() string { return s.name }

func (s *csvShard) Schema() ([]ColumnSchema, error) {
	header, err := tabular.PeekHeader(s.open)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	schema := make([]ColumnSchema, len(header))
	for i, name := range header {
		schema[i] = ColumnSchema{Name: name, Type: filter.TypeString}
	}
	return schema, nil
}

func (s *csvShard) Open(column string, logical filter.Type) (func() (filter.ColumnChunkIterator, error), error) {
	return func() (filter.ColumnChunkIterator, error) {
		src := tabular.NewColumnSource(s.open, column, logical, s.chunkSize)
		return src.Open()
	}, nil
}
