package filter

import (
	"bytes"
	"encoding/gob"

	"github.com/dreamware/petals/internal/petalserr"
)

// SetFilter summarizes a column by the finite set of values it contains.
// Test is exact membership: v ∈ S.
type SetFilter struct {
	allowed   map[string]struct{}
	valueType Type
}

func (f *SetFilter) Kind() Kind { return KindSet }

// setKey renders a Value to a canonical string key so bool/int/float/string
// columns can all share one map without needing a comparable interface{}
// key (which would let accidental cross-type collisions through, e.g.
// int64(1) vs float64(1)).
func setKey(v Value) (string, error) {
	switch v.Type {
	case TypeInt:
		return "i:" + itoa(v.Int), nil
	case TypeFloat:
		return "f:" + ftoa(v.Float), nil
	case TypeBool:
		if v.Bool {
			return "b:1", nil
		}
		return "b:0", nil
	case TypeString:
		return "s:" + v.Str, nil
	default:
		return "", unsupportedType(KindSet, v.Type)
	}
}

// BuildSetFromStream collects every unique value in the stream into a set.
// Per spec.md §4.1, set (unlike most non-bloom variants) tolerates an empty
// stream — it simply rejects every subsequent probe.
func BuildSetFromStream(it ColumnChunkIterator) (*SetFilter, error) {
	allowed := make(map[string]struct{})
	var valueType Type
	seenType := false

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
			if !seenType {
				valueType = v.Type
				seenType = true
			}
			key, err := setKey(v)
			if err != nil {
				return nil, err
			}
			allowed[key] = struct{}{}
		}
	}

	return &SetFilter{allowed: allowed, valueType: valueType}, nil
}

func (f *SetFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		key, err := setKey(v)
		if err != nil {
			return err
		}
		f.allowed[key] = struct{}{}
	}
	return nil
}

func (f *SetFilter) Test(v Value) (bool, error) {
	key, err := setKey(v)
	if err != nil {
		return false, err
	}
	_, ok := f.allowed[key]
	return ok, nil
}

type setPayload struct {
	Allowed   []string
	ValueType Type
}

func (f *SetFilter) Serialize() ([]byte, error) {
	keys := make([]string, 0, len(f.allowed))
	for k := range f.allowed {
		keys = append(keys, k)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(setPayload{Allowed: keys, ValueType: f.valueType}); err != nil {
		return nil, err
	}
	return envelope(KindSet, buf.Bytes())
}

func deserializeSet(payload []byte) (Filter, error) {
	var p setPayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	allowed := make(map[string]struct{}, len(p.Allowed))
	for _, k := range p.Allowed {
		allowed[k] = struct{}{}
	}
	return &SetFilter{allowed: allowed, valueType: p.ValueType}, nil
}
