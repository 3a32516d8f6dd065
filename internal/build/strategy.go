// Package build implements the index build pipeline: it walks a tabular
// data directory, selects a filter strategy per column, streams each
// column into the chosen filter, and persists the result alongside a
// per-store manifest.
package build

import (
	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/petalserr"
)

// Thresholds holds the cardinality cutoffs the strategy selector decides
// against. SET_THRESHOLD must stay below BLOOM_THRESHOLD: the selector
// checks the bloom condition first, so once u is below BLOOM_THRESHOLD
// the narrower set condition is never reached on cardinality grounds
// alone — set is only chosen via the boolean rule further down the table.
// The categorical rule is likewise only reached at cardinality >=
// BLOOM_THRESHOLD, which is above SET_THRESHOLD, so it yields bloom.
type Thresholds struct {
	BloomThreshold int
	SetThreshold   int
}

// DefaultThresholds returns the (10000, 1000) cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{BloomThreshold: 10000, SetThreshold: 1000}
}

// ColumnStats summarizes one column's sampling pass: how many distinct
// values it carries and what logical type dominates. Categorical marks a
// string-typed column as a bounded enumeration rather than free text —
// the decision table treats the two differently. SampleColumn and the
// build pipeline never set it, so the columns they sample are treated as
// free text.
type ColumnStats struct {
	Cardinality  int
	DominantType filter.Type
	Categorical  bool
}

// SelectStrategy applies the cardinality/type decision table and returns
// the filter.Kind to build. Rules are evaluated in order; the first
// match wins.
func SelectStrategy(stats ColumnStats, th Thresholds) (filter.Kind, error) {
	switch {
	case stats.Cardinality < th.BloomThreshold:
		return filter.KindBloom, nil
	case stats.Cardinality < th.SetThreshold:
		return filter.KindSet, nil
	}

	switch stats.DominantType {
	case filter.TypeInt, filter.TypeFloat, filter.TypeTimestamp:
		return filter.KindRange, nil
	case filter.TypeDate:
		return filter.KindDate, nil
	case filter.TypeBool:
		return filter.KindSet, nil
	case filter.TypeString:
		if stats.Categorical {
			if stats.Cardinality <= th.SetThreshold {
				return filter.KindSet, nil
			}
			return filter.KindBloom, nil
		}
		return filter.KindBloom, nil
	default:
		return "", petalserr.Newf(petalserr.KindUnsupportedColumnType, "no strategy for logical type %s", stats.DominantType)
	}
}

// SampleColumn performs a single pass over it, tracking unique-value
// cardinality (capped at cap distinct values, since the selector only
// needs to know whether cardinality crosses the configured thresholds,
// not its exact value beyond that) and the most frequently observed
// logical type.
func SampleColumn(it filter.ColumnChunkIterator, sampleCap int) (ColumnStats, error) {
	seen := make(map[string]struct{})
	typeCounts := make(map[filter.Type]int)

	for {
		chunk, ok, err := it.Next()
		if err != nil {
			return ColumnStats{}, err
		}
		if !ok {
			break
		}
		for _, v := range chunk {
			if v.Null {
				continue
			}
			typeCounts[v.Type]++
			if len(seen) >= sampleCap {
				continue
			}
			seen[sampleKey(v)] = struct{}{}
		}
	}

	dominant := filter.TypeString
	best := -1
	for t, n := range typeCounts {
		if n > best {
			best = n
			dominant = t
		}
	}

	cardinality := len(seen)
	if cardinality >= sampleCap {
		// Cardinality saturated the sampling cap; report it as at least
		// BloomThreshold-scale so the selector doesn't mistake a huge
		// column for a small one.
		cardinality = sampleCap
	}
	return ColumnStats{Cardinality: cardinality, DominantType: dominant}, nil
}

func sampleKey(v filter.Value) string {
	switch v.Type {
	case filter.TypeInt:
		return "i:" + itoa(v.Int)
	case filter.TypeFloat:
		return "f:" + ftoa(v.Float)
	case filter.TypeBool:
		if v.Bool {
			return "b:1"
		}
		return "b:0"
	case filter.TypeString:
		return "s:" + v.Str
	default:
		return v.Time.String()
	}
}
