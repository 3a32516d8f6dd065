package trie

import "testing"

func TestInsertSearch(t *testing.T) {
	tr := New()
	tr.Insert([]string{"s", "shard-a", "status"}, "placeholder")

	v, ok := tr.Search([]string{"s", "shard-a", "status"})
	if !ok {
		t.Fatal("expected value at inserted path")
	}
	if v != "placeholder" {
		t.Errorf("got %v, want placeholder", v)
	}
}

func TestSearchMissing(t *testing.T) {
	tr := New()
	tr.Insert([]string{"s", "shard-a", "status"}, 1)

	if _, ok := tr.Search([]string{"s", "shard-a", "other"}); ok {
		t.Error("expected miss for unindexed sibling path")
	}
	if _, ok := tr.Search([]string{"s", "shard-a"}); ok {
		t.Error("expected miss for non-terminal prefix path")
	}
}

func TestInsertOverwriteIsIdempotent(t *testing.T) {
	tr := New()
	tr.Insert([]string{"s", "a", "c"}, "placeholder")
	tr.Insert([]string{"s", "a", "c"}, "concrete")

	v, ok := tr.Search([]string{"s", "a", "c"})
	if !ok || v != "concrete" {
		t.Errorf("got (%v, %v), want (concrete, true)", v, ok)
	}
	if len(tr.Keys()) != 1 {
		t.Errorf("expected a single key after overwrite, got %d", len(tr.Keys()))
	}
}

func TestKeysEnumeratesAllTerminalPaths(t *testing.T) {
	tr := New()
	paths := [][]string{
		{"s", "a", "status"},
		{"s", "a", "amount"},
		{"s", "b", "status"},
	}
	for _, p := range paths {
		tr.Insert(p, 0)
	}

	got := tr.Keys()
	if len(got) != len(paths) {
		t.Fatalf("got %d keys, want %d", len(got), len(paths))
	}

	seen := make(map[string]bool)
	for _, p := range got {
		seen[joinPath(p)] = true
	}
	for _, p := range paths {
		if !seen[joinPath(p)] {
			t.Errorf("missing expected path %v", p)
		}
	}
}

func TestWalkVisitsValues(t *testing.T) {
	tr := New()
	tr.Insert([]string{"s", "a", "status"}, "set")
	tr.Insert([]string{"s", "b", "status"}, "bloom")

	got := make(map[string]any)
	tr.Walk(func(path []string, value any) {
		got[joinPath(path)] = value
	})

	if got[joinPath([]string{"s", "a", "status"})] != "set" {
		t.Error("expected shard a's value to be set")
	}
	if got[joinPath([]string{"s", "b", "status"})] != "bloom" {
		t.Error("expected shard b's value to be bloom")
	}
}

func joinPath(path []string) string {
	out := ""
	for i, seg := range path {
		if i > 0 {
			out += "/"
		}
		out += seg
	}
	return out
}
