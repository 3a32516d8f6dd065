package filter

import (
	"bytes"
	"encoding/gob"

	"github.com/rdleal/intervalst/interval"

	"github.com/dreamware/petals/internal/petalserr"
)

// intervalBound is the value type stored alongside each interval in the
// search tree: the tree's own query only tells us a candidate overlaps the
// probe point under closed-range semantics, so we keep the original bounds
// around to re-check the half-open [lo, hi) containment the spec actually
// requires.
type intervalBound struct {
	lo, hi float64
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IntervalTreeFilter summarizes a column of half-open intervals [lo, hi)
// and answers point-stabbing queries: does any ingested interval contain v.
type IntervalTreeFilter struct {
	tree    *interval.SearchTree[intervalBound, float64]
	bounds  []intervalBound
	isEmpty bool
}

func (f *IntervalTreeFilter) Kind() Kind { return KindIntervalTree }

func newIntervalSearchTree() *interval.SearchTree[intervalBound, float64] {
	return interval.NewSearchTree[intervalBound](cmpFloat64)
}

// BuildIntervalTreeFromStream ingests every interval in the stream into the
// search tree.
func BuildIntervalTreeFromStream(it ColumnChunkIterator) (*IntervalTreeFilter, error) {
	tree := newIntervalSearchTree()
	var bounds []intervalBound
	any := false

	for {
		chunk, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, v := range chunk {
			if v.Null {
				continue
			}
			if v.Type != TypeInterval {
				return nil, unsupportedType(KindIntervalTree, v.Type)
			}
			b := intervalBound{lo: v.IntervalLo, hi: v.IntervalHi}
			if err := tree.Insert(b.lo, b.hi, b); err != nil {
				return nil, err
			}
			bounds = append(bounds, b)
			any = true
		}
	}

	if !any {
		return nil, emptyInput(KindIntervalTree)
	}
	return &IntervalTreeFilter{tree: tree, bounds: bounds}, nil
}

func (f *IntervalTreeFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		if v.Type != TypeInterval {
			return unsupportedType(KindIntervalTree, v.Type)
		}
		b := intervalBound{lo: v.IntervalLo, hi: v.IntervalHi}
		if err := f.tree.Insert(b.lo, b.hi, b); err != nil {
			return err
		}
		f.bounds = append(f.bounds, b)
	}
	return nil
}

func pointOf(v Value) (float64, error) {
	switch v.Type {
	case TypeInt:
		return float64(v.Int), nil
	case TypeFloat:
		return v.Float, nil
	default:
		return 0, unsupportedType(KindIntervalTree, v.Type)
	}
}

func (f *IntervalTreeFilter) Test(v Value) (bool, error) {
	p, err := pointOf(v)
	if err != nil {
		return false, err
	}
	candidates, err := f.tree.AllIntersections(p, p)
	if err != nil {
		// AllIntersections reports "no intersection" as an error in this
		// library rather than an empty slice; treat it as a clean miss.
		return false, nil
	}
	for _, c := range candidates {
		if c.lo <= p && p < c.hi {
			return true, nil
		}
	}
	return false, nil
}

type intervalTreePayload struct {
	Bounds []intervalBound
}

func (f *IntervalTreeFilter) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(intervalTreePayload{Bounds: f.bounds}); err != nil {
		return nil, err
	}
	return envelope(KindIntervalTree, buf.Bytes())
}

func deserializeIntervalTree(payload []byte) (Filter, error) {
	var p intervalTreePayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	tree := newIntervalSearchTree()
	for _, b := range p.Bounds {
		if err := tree.Insert(b.lo, b.hi, b); err != nil {
			return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
		}
	}
	return &IntervalTreeFilter{tree: tree, bounds: p.Bounds}, nil
}
