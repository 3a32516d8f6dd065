package build

import "github.com/dreamware/petals/internal/filter"

// Params bundles every variant's construction parameters in one struct so
// a single config value can flow from CLI/config into whichever
// constructor the selector ends up choosing, without the selector or
// pipeline needing per-variant special cases beyond the registry lookup
// itself.
type Params struct {
	Bloom       filter.BloomParams
	FuzzyString filter.FuzzyStringParams
	Date        filter.DateParams
	KDTree      filter.KDTreeParams
}

// DefaultParams returns the default construction parameters for every
// variant.
func DefaultParams() Params {
	return Params{
		Bloom:       filter.DefaultBloomParams(),
		FuzzyString: filter.FuzzyStringParams{Threshold: 0.85},
		Date:        filter.DefaultDateParams(),
		KDTree:      filter.KDTreeParams{Radius: 0.01},
	}
}

// Constructor builds a filter of one kind from a fresh iterator supplier.
// newIter must return an independent pass over the column each time it's
// called — bloom calls it twice (cardinality, then insertion); every
// other variant calls it once.
type Constructor func(newIter func() (filter.ColumnChunkIterator, error), params Params) (filter.Filter, error)

// Registry maps a filter.Kind to the constructor that builds it. This is
// the explicit registry called for by the filter package's variant
// catalog: a table, built once at startup, rather than a reflective
// lookup over constructor names.
var Registry = map[filter.Kind]Constructor{
	filter.KindBloom: func(newIter func() (filter.ColumnChunkIterator, error), p Params) (filter.Filter, error) {
		first, err := newIter()
		if err != nil {
			return nil, err
		}
		second, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildBloomFromStream(first, second, p.Bloom)
	},
	filter.KindRange: func(newIter func() (filter.ColumnChunkIterator, error), _ Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildRangeFromStream(it)
	},
	filter.KindSet: func(newIter func() (filter.ColumnChunkIterator, error), _ Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildSetFromStream(it)
	},
	filter.KindFuzzyString: func(newIter func() (filter.ColumnChunkIterator, error), p Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildFuzzyStringFromStream(it, p.FuzzyString)
	},
	filter.KindDate: func(newIter func() (filter.ColumnChunkIterator, error), p Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildDateFromStream(it, p.Date)
	},
	filter.KindIntervalTree: func(newIter func() (filter.ColumnChunkIterator, error), _ Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildIntervalTreeFromStream(it)
	},
	filter.KindKDTree: func(newIter func() (filter.ColumnChunkIterator, error), p Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildKDTreeFromStream(it, p.KDTree)
	},
	filter.KindBitVector: func(newIter func() (filter.ColumnChunkIterator, error), _ Params) (filter.Filter, error) {
		it, err := newIter()
		if err != nil {
			return nil, err
		}
		return filter.BuildBitVectorFromStream(it)
	},
}
