package build

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirDataSource enumerates CSV shards under a root directory. Every
// *.csv file directly or transitively under Root becomes one shard,
// named after its path relative to Root with the extension stripped.
type DirDataSource struct {
	Root      string
	ChunkSize int
}

// NewDirDataSource returns a DataSource over every .csv file under root.
func NewDirDataSource(root string, chunkSize int) *DirDataSource {
	return &DirDataSource{Root: root, ChunkSize: chunkSize}
}

func (d *DirDataSource) Shards() ([]ShardSource, error) {
	var shards []ShardSource
	err := filepath.WalkDir(d.Root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		capturedPath := path
		shards = append(shards, NewCSVShard(name, func() (io.ReadCloser, error) {
			return os.Open(capturedPath)
		}, d.ChunkSize))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shards, nil
}
