// Package storage defines the storage backend abstraction used by the
// build pipeline and the index catalog, and provides concrete
// implementations for local filesystem and remote blob-store targets.
//
// # Overview
//
// Both the build pipeline (writing filter blobs) and the catalog (reading
// them back, lazily, at query time) need the same three primitives —
// enumerate, read, write — against two different physical substrates. This
// package defines a single Backend interface and two implementations so
// neither caller needs to know which substrate it's talking to.
//
// # Architecture
//
//	┌────────────────────────────────────┐
//	│     build.Pipeline / catalog        │
//	└───────────────────┬────────────────┘
//	                     ▼
//	┌────────────────────────────────────┐
//	│           Backend interface         │
//	│    Enumerate / Read / Write         │
//	└───────────────┬──────────┬─────────┘
//	                ▼          ▼
//	       ┌───────────────┐ ┌───────────────────┐
//	       │ LocalFSBackend │ │ BlobStoreBackend   │
//	       └───────────────┘ └───────────────────┘
//
// Both implementations preserve the <store>/<shard>/<column>.blob naming
// convention: relative paths passed to Read/Write/Enumerate are always
// slash-joined segments, never OS-specific, so the same relative path
// works unmodified against either backend.
//
// # Concurrency
//
// Neither implementation holds mutable state beyond its root/base
// configuration, so both are safe for concurrent use without additional
// locking — concurrent Reads and Writes map directly onto concurrent
// filesystem or HTTP operations. MemoryBackend, used in tests and as the
// build pipeline's scratch target, guards its map with a mutex.
package storage
