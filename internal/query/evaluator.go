package query

import (
	"context"

	"github.com/dreamware/petals/internal/catalog"
	"github.com/dreamware/petals/internal/petalserr"
)

// Evaluator reduces a Predicate against a store's catalog to the set of
// shard names that may satisfy it.
type Evaluator struct {
	cat     *catalog.Catalog
	ordinal *catalog.ShardOrdinals
}

// NewEvaluator returns an Evaluator over cat, using ordinal to back its
// shard-set algebra. Callers that evaluate many predicates against the
// same catalog should share one ShardOrdinals table across Evaluators so
// the same shard always maps to the same ordinal.
func NewEvaluator(cat *catalog.Catalog, ordinal *catalog.ShardOrdinals) *Evaluator {
	return &Evaluator{cat: cat, ordinal: ordinal}
}

// Eval evaluates predicate against store and returns the surviving shard
// names. AND composites intersect their children's sets, OR composites
// union them; a zero-rule composite is malformed, and a one-rule
// composite evaluates to its sole child. Atoms with no matching catalog
// entries yield the empty set, per spec §4.5's deliberate "absence of
// index is absence of data" rule.
func (e *Evaluator) Eval(ctx context.Context, predicate Predicate, store string) ([]string, error) {
	set, err := e.eval(ctx, predicate, store)
	if err != nil {
		return nil, err
	}
	return set.Names(), nil
}

func (e *Evaluator) eval(ctx context.Context, p Predicate, store string) (*catalog.ShardSet, error) {
	if p.IsComposite() {
		return e.evalComposite(ctx, p, store)
	}
	return e.evalAtom(ctx, p, store)
}

func (e *Evaluator) evalComposite(ctx context.Context, p Predicate, store string) (*catalog.ShardSet, error) {
	if len(p.Rules) == 0 {
		return nil, petalserr.New(petalserr.KindMalformedPredicate, "composite predicate has zero rules")
	}
	cond, err := normalizeCondition(p.Condition)
	if err != nil {
		return nil, err
	}

	first, err := e.eval(ctx, p.Rules[0], store)
	if err != nil {
		return nil, err
	}
	if len(p.Rules) == 1 {
		return first, nil
	}

	result := first
	for _, rule := range p.Rules[1:] {
		next, err := e.eval(ctx, rule, store)
		if err != nil {
			return nil, err
		}
		if cond == "and" {
			result = result.Intersect(next)
		} else {
			result = result.Union(next)
		}
	}
	return result, nil
}

func (e *Evaluator) evalAtom(ctx context.Context, p Predicate, store string) (*catalog.ShardSet, error) {
	result := catalog.NewShardSet(e.ordinal)

	value, err := atomValue(p.Value)
	if err != nil {
		return nil, err
	}

	matches := e.cat.FindShards(store, p.Field)
	for _, m := range matches {
		ok, err := e.cat.Probe(ctx, store, m.Shard, m.Column, value)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Add(m.Shard)
		}
	}
	return result, nil
}
