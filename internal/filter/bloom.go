package filter

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"hash/fnv"

	"github.com/holiman/bloomfilter/v2"

	"github.com/dreamware/petals/internal/petalserr"
)

// BloomParams configures a bloom filter build. ErrorRate is the target
// false-positive rate ε used to size the underlying bit array once the
// first pass has computed the expected cardinality n.
type BloomParams struct {
	ErrorRate float64
}

// DefaultBloomParams matches the source implementation's default error
// rate.
func DefaultBloomParams() BloomParams { return BloomParams{ErrorRate: 0.1} }

// BloomFilter is a probabilistic membership summary: a bit array plus k
// hash functions sized for an expected cardinality n and target
// false-positive rate ε. Test is one-sided — false is exact, true may be a
// false positive at rate bounded by ε.
type BloomFilter struct {
	bits      *bloomfilter.Filter
	valueType Type
}

func (f *BloomFilter) Kind() Kind { return KindBloom }

func hashValue(v Value) (uint64, error) {
	h := fnv.New64a()
	switch v.Type {
	case TypeInt:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Int))
		h.Write(buf[:])
	case TypeFloat:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Float))
		h.Write(buf[:])
	case TypeBool:
		if v.Bool {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case TypeString:
		h.Write([]byte(v.Str))
	case TypeDate, TypeTimestamp:
		h.Write([]byte(v.Time.UTC().Format("2006-01-02T15:04:05.999999999Z")))
	default:
		return 0, unsupportedType(KindBloom, v.Type)
	}
	return h.Sum64(), nil
}

// BuildBloomFromStream performs the two-pass construction described in
// spec.md §4.1: a first pass over the full stream to compute the unique
// cardinality n, then a second pass (via a freshly opened iterator) to
// insert every unique value into a filter sized for (n, ε).
func BuildBloomFromStream(first, second ColumnChunkIterator, params BloomParams) (*BloomFilter, error) {
	unique := make(map[uint64]struct{})
	var valueType Type
	seenType := false

	for {
		chunk, ok, err := first.Next()
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
			h, err := hashValue(v)
			if err != nil {
				return nil, err
			}
			unique[h] = struct{}{}
		}
	}

	n := uint64(len(unique))
	if n == 0 {
		n = 1 // bloom tolerates empty input; size a degenerate 1-element filter that rejects everything.
	}

	bits, err := bloomfilter.NewOptimal(n, params.ErrorRate)
	if err != nil {
		return nil, petalserr.Newf(petalserr.KindEmptyInput, "bloom filter sizing failed: %v", err)
	}

	if len(unique) == 0 {
		return &BloomFilter{bits: bits, valueType: valueType}, nil
	}

	for {
		chunk, ok, err := second.Next()
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
			h, err := hashValue(v)
			if err != nil {
				return nil, err
			}
			bits.Add(fnvHashable(h))
		}
	}

	return &BloomFilter{bits: bits, valueType: valueType}, nil
}

// fnvHashable adapts a precomputed uint64 digest to bloomfilter.Filter's
// Hashable entry type so callers never need to know the library's hash
// plumbing, only that identical Values hash identically.
type fnvHashable uint64

func (h fnvHashable) Sum64() uint64 { return uint64(h) }

func (f *BloomFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		h, err := hashValue(v)
		if err != nil {
			return err
		}
		f.bits.Add(fnvHashable(h))
	}
	return nil
}

func (f *BloomFilter) Test(v Value) (bool, error) {
	h, err := hashValue(v)
	if err != nil {
		return false, err
	}
	return f.bits.Contains(fnvHashable(h)), nil
}

type bloomPayload struct {
	ValueType Type
	Bits      []byte
}

func (f *BloomFilter) Serialize() ([]byte, error) {
	raw, err := f.bits.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bloomPayload{ValueType: f.valueType, Bits: raw}); err != nil {
		return nil, err
	}
	return envelope(KindBloom, buf.Bytes())
}

func deserializeBloom(payload []byte) (Filter, error) {
	var p bloomPayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	bits := new(bloomfilter.Filter)
	if err := bits.UnmarshalBinary(p.Bits); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	return &BloomFilter{bits: bits, valueType: p.ValueType}, nil
}
