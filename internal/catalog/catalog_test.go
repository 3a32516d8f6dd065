package catalog

import (
	"context"
	"testing"

	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/storage"
)

type countingBackend struct {
	storage.Backend
	reads int
}

func (b *countingBackend) Read(ctx context.Context, relativePath string) ([]byte, error) {
	b.reads++
	return b.Backend.Read(ctx, relativePath)
}

func buildSetBlob(t *testing.T, values ...string) []byte {
	t.Helper()
	chunks := make(filter.Chunk, 0, len(values))
	for _, v := range values {
		chunks = append(chunks, filter.StringValue(v))
	}
	it := &chunkIterator{chunk: chunks}
	f, err := filter.BuildSetFromStream(it)
	if err != nil {
		t.Fatalf("build set failed: %v", err)
	}
	blob, err := f.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return blob
}

type chunkIterator struct {
	chunk filter.Chunk
	done  bool
}

func (c *chunkIterator) Next() (filter.Chunk, bool, error) {
	if c.done {
		return nil, false, nil
	}
	c.done = true
	return c.chunk, true, nil
}

func setupCatalog(t *testing.T) (*Catalog, *countingBackend) {
	t.Helper()
	mem := storage.NewMemoryBackend()
	ctx := context.Background()

	if err := mem.Write(ctx, "s/a/status.blob", buildSetBlob(t, "active")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	if err := mem.Write(ctx, "s/b/status.blob", buildSetBlob(t, "inactive")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	backend := &countingBackend{Backend: mem}
	cat := New(backend)
	if err := cat.LoadFromBackend(ctx, "s"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return cat, backend
}

func TestFindShardsPrefixMatch(t *testing.T) {
	cat, _ := setupCatalog(t)
	matches := cat.FindShards("s", "status")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
}

func TestProbeSelectsCorrectShard(t *testing.T) {
	cat, _ := setupCatalog(t)
	ctx := context.Background()

	ok, err := cat.Probe(ctx, "s", "a", "status", filter.StringValue("active"))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !ok {
		t.Error("expected shard a to match status=active")
	}

	ok, err = cat.Probe(ctx, "s", "b", "status", filter.StringValue("active"))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if ok {
		t.Error("expected shard b not to match status=active")
	}
}

func TestLazyMaterializationIsIdempotent(t *testing.T) {
	cat, backend := setupCatalog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := cat.Probe(ctx, "s", "a", "status", filter.StringValue("active")); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if backend.reads != 1 {
		t.Errorf("expected exactly one backend read across repeated probes, got %d", backend.reads)
	}
}

func TestProbeUnknownKeyReturnsFalse(t *testing.T) {
	cat, _ := setupCatalog(t)
	ok, err := cat.Probe(context.Background(), "s", "nonexistent", "status", filter.StringValue("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected unknown key to yield false")
	}
}

func TestShardSetIntersectUnion(t *testing.T) {
	ords := NewShardOrdinals()
	a := NewShardSet(ords)
	a.Add("shard-1")
	a.Add("shard-2")

	b := NewShardSet(ords)
	b.Add("shard-2")
	b.Add("shard-3")

	inter := a.Intersect(b)
	if names := inter.Names(); len(names) != 1 || names[0] != "shard-2" {
		t.Errorf("got %v, want [shard-2]", names)
	}

	union := a.Union(b)
	if len(union.Names()) != 3 {
		t.Errorf("got %d names, want 3", len(union.Names()))
	}
}

func TestParseBlobPath(t *testing.T) {
	key, ok := parseBlobPath("s/shard-a/status.blob")
	if !ok {
		t.Fatal("expected valid blob path to parse")
	}
	if key != ([3]string{"s", "shard-a", "status"}) {
		t.Errorf("got %v", key)
	}

	if _, ok := parseBlobPath("s/shard-a/status.txt"); ok {
		t.Error("expected non-blob suffix to be rejected")
	}
	if _, ok := parseBlobPath("malformed"); ok {
		t.Error("expected malformed path to be rejected")
	}
}

