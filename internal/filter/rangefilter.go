package filter

import (
	"bytes"
	"encoding/gob"

	"github.com/dreamware/petals/internal/petalserr"
)

// RangeFilter summarizes a totally ordered numeric or timestamp domain by
// its (min, max) bounds. Test is exact: min <= v <= max.
type RangeFilter struct {
	min, max  float64
	valueType Type
}

func (f *RangeFilter) Kind() Kind { return KindRange }

// BuildRangeFromStream computes the global min/max in a single pass, per
// spec.md §4.1 (range is single-pass, unlike bloom's two-pass construction).
func BuildRangeFromStream(it ColumnChunkIterator) (*RangeFilter, error) {
	var min, max float64
	haveAny := false
	var valueType Type

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
			n, ok := v.numeric()
			if !ok {
				switch v.Type {
				case TypeTimestamp:
					n = float64(v.Time.UnixNano())
				default:
					return nil, unsupportedType(KindRange, v.Type)
				}
			}
			if !haveAny {
				min, max, haveAny, valueType = n, n, true, v.Type
				continue
			}
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
		}
	}

	if !haveAny {
		return nil, emptyInput(KindRange)
	}
	return &RangeFilter{min: min, max: max, valueType: valueType}, nil
}

// Update folds an additional chunk into an already-built filter. Per the
// contract in spec.md §3, this is only ever called during construction,
// never after the filter is published to the catalog.
func (f *RangeFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		n, ok := v.numeric()
		if !ok {
			if v.Type == TypeTimestamp {
				n = float64(v.Time.UnixNano())
			} else {
				return unsupportedType(KindRange, v.Type)
			}
		}
		if n < f.min {
			f.min = n
		}
		if n > f.max {
			f.max = n
		}
	}
	return nil
}

func (f *RangeFilter) asNumeric(v Value) (float64, error) {
	switch v.Type {
	case TypeInt:
		return float64(v.Int), nil
	case TypeFloat:
		return v.Float, nil
	case TypeTimestamp:
		return float64(v.Time.UnixNano()), nil
	default:
		return 0, unsupportedType(KindRange, v.Type)
	}
}

func (f *RangeFilter) Test(v Value) (bool, error) {
	n, err := f.asNumeric(v)
	if err != nil {
		return false, err
	}
	return f.min <= n && n <= f.max, nil
}

type rangePayload struct {
	Min, Max  float64
	ValueType Type
}

func (f *RangeFilter) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rangePayload{Min: f.min, Max: f.max, ValueType: f.valueType}); err != nil {
		return nil, err
	}
	return envelope(KindRange, buf.Bytes())
}

func deserializeRange(payload []byte) (Filter, error) {
	var p rangePayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	return &RangeFilter{min: p.Min, max: p.Max, valueType: p.ValueType}, nil
}
