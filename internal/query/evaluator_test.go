package query

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/dreamware/petals/internal/catalog"
	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/storage"
)

type oneShotIterator struct {
	chunk filter.Chunk
	done  bool
}

func (it *oneShotIterator) Next() (filter.Chunk, bool, error) {
	if it.done {
		return nil, false, nil
	}
	it.done = true
	return it.chunk, true, nil
}

func setBlob(t *testing.T, values ...string) []byte {
	t.Helper()
	chunk := make(filter.Chunk, len(values))
	for i, v := range values {
		chunk[i] = filter.StringValue(v)
	}
	f, err := filter.BuildSetFromStream(&oneShotIterator{chunk: chunk})
	if err != nil {
		t.Fatalf("build set failed: %v", err)
	}
	blob, err := f.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return blob
}

func rangeBlob(t *testing.T, lo, hi int64) []byte {
	t.Helper()
	f, err := filter.BuildRangeFromStream(&oneShotIterator{chunk: filter.Chunk{filter.IntValue(lo), filter.IntValue(hi)}})
	if err != nil {
		t.Fatalf("build range failed: %v", err)
	}
	blob, err := f.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return blob
}

func newTestEvaluator(t *testing.T, blobs map[string][]byte) *Evaluator {
	t.Helper()
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	for path, blob := range blobs {
		if err := backend.Write(ctx, path, blob); err != nil {
			t.Fatalf("seed write failed: %v", err)
		}
	}
	cat := catalog.New(backend)
	if err := cat.LoadFromBackend(ctx, "s"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return NewEvaluator(cat, catalog.NewShardOrdinals())
}

func atom(field string, value any) Predicate {
	raw, _ := json.Marshal(value)
	return Predicate{Field: field, Value: raw}
}

func composite(cond string, rules ...Predicate) Predicate {
	return Predicate{Condition: cond, Rules: rules}
}

func sorted(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

func TestS1ExactSetMatch(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/status.blob": setBlob(t, "active"),
		"s/b/status.blob": setBlob(t, "inactive"),
	})

	got, err := ev.Eval(context.Background(), atom("status", "inactive"), "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if want := []string{"b"}; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestS2AndIntersection(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/status.blob": setBlob(t, "inactive"),
		"s/a/type.blob":   setBlob(t, "savings"),
		"s/b/status.blob": setBlob(t, "inactive"),
		"s/b/type.blob":   setBlob(t, "checking"),
		"s/c/status.blob": setBlob(t, "active"),
		"s/c/type.blob":   setBlob(t, "savings"),
	})

	q := composite("and", atom("status", "inactive"), atom("type", "savings"))
	got, err := ev.Eval(context.Background(), q, "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if want := []string{"a"}; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestS3OrUnion(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/status.blob": setBlob(t, "inactive"),
		"s/a/type.blob":   setBlob(t, "savings"),
		"s/b/status.blob": setBlob(t, "inactive"),
		"s/b/type.blob":   setBlob(t, "checking"),
		"s/c/status.blob": setBlob(t, "active"),
		"s/c/type.blob":   setBlob(t, "savings"),
	})

	q := composite("OR", atom("status", "active"), atom("type", "checking"))
	got, err := ev.Eval(context.Background(), q, "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if want := []string{"b", "c"}; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestS5RangePredicate(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/amount.blob": rangeBlob(t, 0, 100),
		"s/b/amount.blob": rangeBlob(t, 200, 300),
	})

	cases := []struct {
		value int64
		want  []string
	}{
		{150, nil},
		{50, []string{"a"}},
		{250, []string{"b"}},
	}
	for _, c := range cases {
		got, err := ev.Eval(context.Background(), atom("amount", c.value), "s")
		if err != nil {
			t.Fatalf("eval failed: %v", err)
		}
		if !equalSets(got, c.want) {
			t.Errorf("value %d: got %v, want %v", c.value, got, c.want)
		}
	}
}

func TestS6UnknownField(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/status.blob": setBlob(t, "inactive"),
	})

	got, err := ev.Eval(context.Background(), atom("nonexistent", "x"), "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty set for unknown field, got %v", got)
	}

	andQ := composite("and", atom("status", "inactive"), atom("nonexistent", "x"))
	got, err = ev.Eval(context.Background(), andQ, "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected AND with unknown field to short-circuit to empty, got %v", got)
	}

	orQ := composite("or", atom("status", "inactive"), atom("nonexistent", "x"))
	got, err = ev.Eval(context.Background(), orQ, "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if want := []string{"a"}; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestZeroRuleCompositeIsMalformed(t *testing.T) {
	ev := newTestEvaluator(t, nil)
	_, err := ev.Eval(context.Background(), composite("and"), "s")
	if err == nil {
		t.Error("expected MalformedPredicate for zero-rule composite")
	}
}

func TestUnknownConditionIsMalformed(t *testing.T) {
	ev := newTestEvaluator(t, nil)
	_, err := ev.Eval(context.Background(), composite("xor", atom("a", "b")), "s")
	if err == nil {
		t.Error("expected MalformedPredicate for unknown condition tag")
	}
}

func TestSingleRuleCompositeEvaluatesToChild(t *testing.T) {
	ev := newTestEvaluator(t, map[string][]byte{
		"s/a/status.blob": setBlob(t, "inactive"),
	})
	got, err := ev.Eval(context.Background(), composite("and", atom("status", "inactive")), "s")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if want := []string{"a"}; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func equalSets(got, want []string) bool {
	g, w := sorted(got), sorted(want)
	if len(g) != len(w) {
		return false
	}
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}
