package filter

import (
	"bytes"
	"encoding/gob"

	"github.com/bits-and-blooms/bitset"

	"github.com/dreamware/petals/internal/petalserr"
)

// BitVectorFilter summarizes a bounded-integer column as a dense bit array
// of length N: bit i set means i was present in the ingested data. Test is
// O(1) exact membership for v in [0, N).
type BitVectorFilter struct {
	bits *bitset.BitSet
}

func (f *BitVectorFilter) Kind() Kind { return KindBitVector }

// BuildBitVectorFromStream ingests every integer in the stream, growing the
// bit array as needed to cover the largest observed index.
func BuildBitVectorFromStream(it ColumnChunkIterator) (*BitVectorFilter, error) {
	bits := bitset.New(0)
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
			if v.Type != TypeInt {
				return nil, unsupportedType(KindBitVector, v.Type)
			}
			if v.Int < 0 {
				return nil, petalserr.TypeMismatch("bitvector index %d is negative", v.Int)
			}
			bits.Set(uint(v.Int))
			any = true
		}
	}

	if !any {
		return nil, emptyInput(KindBitVector)
	}
	return &BitVectorFilter{bits: bits}, nil
}

func (f *BitVectorFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		if v.Type != TypeInt {
			return unsupportedType(KindBitVector, v.Type)
		}
		if v.Int < 0 {
			return petalserr.TypeMismatch("bitvector index %d is negative", v.Int)
		}
		f.bits.Set(uint(v.Int))
	}
	return nil
}

func (f *BitVectorFilter) Test(v Value) (bool, error) {
	if v.Type != TypeInt {
		return false, unsupportedType(KindBitVector, v.Type)
	}
	if v.Int < 0 || uint(v.Int) >= f.bits.Len() {
		return false, nil
	}
	return f.bits.Test(uint(v.Int)), nil
}

func (f *BitVectorFilter) Serialize() ([]byte, error) {
	raw, err := f.bits.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, err
	}
	return envelope(KindBitVector, buf.Bytes())
}

func deserializeBitVector(payload []byte) (Filter, error) {
	var raw []byte
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&raw); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	bits := new(bitset.BitSet)
	if err := bits.UnmarshalBinary(raw); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	return &BitVectorFilter{bits: bits}, nil
}
