package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestLocalFSBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalFSBackend(dir)
	ctx := context.Background()

	if err := b.Write(ctx, "s/shard-a/status.blob", []byte("payload")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := b.Read(ctx, "s/shard-a/status.blob")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("got %q, want %q", data, "payload")
	}

	if _, err := os.Stat(filepath.Join(dir, "s", "shard-a", "status.blob")); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}
}

func TestLocalFSBackendReadMissing(t *testing.T) {
	b := NewLocalFSBackend(t.TempDir())
	if _, err := b.Read(context.Background(), "s/missing.blob"); err != ErrBlobNotFound {
		t.Errorf("got %v, want ErrBlobNotFound", err)
	}
}

func TestLocalFSBackendEnumerate(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalFSBackend(dir)
	ctx := context.Background()

	paths := []string{"s/a/status.blob", "s/a/amount.blob", "s/b/status.blob"}
	for _, p := range paths {
		if err := b.Write(ctx, p, []byte("x")); err != nil {
			t.Fatalf("write %s failed: %v", p, err)
		}
	}

	got, err := b.Enumerate(ctx, "s")
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	sort.Strings(got)
	sort.Strings(paths)
	if len(got) != len(paths) {
		t.Fatalf("got %d entries, want %d: %v", len(got), len(paths), got)
	}
	for i := range paths {
		if got[i] != paths[i] {
			t.Errorf("entry %d: got %s, want %s", i, got[i], paths[i])
		}
	}
}

func TestLocalFSBackendEnumerateEmptyRoot(t *testing.T) {
	b := NewLocalFSBackend(filepath.Join(t.TempDir(), "does-not-exist"))
	got, err := b.Enumerate(context.Background(), "")
	if err != nil {
		t.Fatalf("enumerate over missing root should not error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	if err := b.Write(ctx, "s/a/status.blob", []byte("v1")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := b.Read(ctx, "s/a/status.blob")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("got %q, want v1", data)
	}

	if _, err := b.Read(ctx, "s/a/missing.blob"); err != ErrBlobNotFound {
		t.Errorf("got %v, want ErrBlobNotFound", err)
	}
}

func TestMemoryBackendEnumeratePrefix(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	_ = b.Write(ctx, "s/a/status.blob", []byte("x"))
	_ = b.Write(ctx, "s/b/status.blob", []byte("x"))
	_ = b.Write(ctx, "t/a/status.blob", []byte("x"))

	got, err := b.Enumerate(ctx, "s/")
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries under s/, want 2: %v", len(got), got)
	}
}
