// Command petals-build walks a directory of tabular shard files, picks a
// filter strategy per column, and writes serialized filters plus a
// per-store manifest, per the build-pipeline configuration table in
// spec.md §6.
//
// Configuration (environment variables):
//   - PETALS_DATA_DIR: root directory scanned for tabular files (required)
//   - PETALS_STORE_NAME: logical store label for this invocation (required)
//   - PETALS_INDEX_DIR: root for emitted filter blobs and manifests
//   - PETALS_INCLUDED_COLUMNS: comma-separated column allowlist
//   - PETALS_CONFIG_FILE: optional YAML overrides (per-column filter and
//     logical type; filter params, which apply to every column)
//   - PETALS_BLOOM_THRESHOLD / PETALS_SET_THRESHOLD: strategy-selector cutoffs
//   - PETALS_DEFAULT_CHUNK_SIZE: chunk size passed to the CSV reader
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/dreamware/petals/internal/build"
	"github.com/dreamware/petals/internal/config"
	"github.com/dreamware/petals/internal/storage"
)

var logFatal = log.Fatalf

func main() {
	bc := config.BuildConfigFromEnv()

	fileOverrides, err := config.LoadFileOverrides(bc.ConfigFile)
	if err != nil {
		logFatal("loading config file: %v", err)
	}

	pipelineCfg, err := config.ToPipelineConfig(bc, fileOverrides)
	if err != nil {
		logFatal("merging config: %v", err)
	}

	source := build.NewDirDataSource(bc.DataDir, bc.DefaultChunkSize)
	backend := storage.NewLocalFSBackend(bc.IndexDir)

	pipeline := build.New(backend, pipelineCfg)
	manifest, errs := pipeline.Run(context.Background(), source)

	for _, e := range errs {
		log.Printf("build: %v", e)
	}

	blob, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		logFatal("marshaling manifest: %v", err)
	}
	relPath := "stores_metadata/" + bc.StoreName + ".json"
	if err := backend.Write(context.Background(), relPath, blob); err != nil {
		logFatal("writing manifest: %v", err)
	}

	log.Printf("built store %q: %d columns indexed, %d errors", bc.StoreName, len(manifest.Columns), len(errs))
	if len(errs) > 0 {
		os.Exit(1)
	}
}
