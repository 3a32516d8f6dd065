// Package filter implements the column-summary filter taxonomy: a sum type
// of data-skipping structures sharing a uniform construct/update/test
// contract. See doc.go for the full variant catalog and serialization
// format.
package filter

import (
	"time"

	"github.com/dreamware/petals/internal/petalserr"
)

// Kind names a filter variant. The string value is the exact tag used in
// the on-disk manifest and in the serialized blob header, so it must never
// change once a variant ships.
type Kind string

const (
	KindBloom        Kind = "bloom"
	KindRange        Kind = "range"
	KindSet          Kind = "set"
	KindFuzzyString  Kind = "fuzzy_string"
	KindDate         Kind = "date"
	KindIntervalTree Kind = "intervaltree"
	KindKDTree       Kind = "kdtree"
	KindBitVector    Kind = "bitvector"
)

// Type is the nominal logical type of a column value, independent of its
// Go representation.
type Type int

const (
	TypeInt Type = iota
	TypeFloat
	TypeBool
	TypeString
	TypeDate
	TypeTimestamp
	TypeInterval
	TypePoint
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeInterval:
		return "interval"
	case TypePoint:
		return "point"
	default:
		return "unknown"
	}
}

// Value is a single column value (or probe value) tagged with its logical
// type. Only the fields relevant to Type are meaningful; this mirrors a
// tagged union without requiring a type switch on interface{} at every call
// site, which matters here because Test is on the hot path of every query.
type Value struct {
	Time       time.Time
	Str        string
	Point      []float64
	Int        int64
	Float      float64
	IntervalLo float64
	IntervalHi float64
	Type       Type
	Bool       bool
	Null       bool
}

// IntValue constructs a non-null integer value.
func IntValue(v int64) Value { return Value{Type: TypeInt, Int: v} }

// FloatValue constructs a non-null floating-point value.
func FloatValue(v float64) Value { return Value{Type: TypeFloat, Float: v} }

// BoolValue constructs a non-null boolean value.
func BoolValue(v bool) Value { return Value{Type: TypeBool, Bool: v} }

// StringValue constructs a non-null string value (used for both categorical
// and free-form string columns; the strategy selector is what distinguishes
// them, not the Value representation).
func StringValue(v string) Value { return Value{Type: TypeString, Str: v} }

// DateValue constructs a non-null calendar-date value (time-of-day is not
// significant).
func DateValue(v time.Time) Value { return Value{Type: TypeDate, Time: v} }

// TimestampValue constructs a non-null timestamp value.
func TimestampValue(v time.Time) Value { return Value{Type: TypeTimestamp, Time: v} }

// IntervalValue constructs a non-null half-open interval [lo, hi).
func IntervalValue(lo, hi float64) Value {
	return Value{Type: TypeInterval, IntervalLo: lo, IntervalHi: hi}
}

// PointValue constructs a non-null spatial point.
func PointValue(coords []float64) Value { return Value{Type: TypePoint, Point: coords} }

// NullValue constructs a null value of the given type, to be dropped before
// indexing.
func NullValue(t Type) Value { return Value{Type: t, Null: true} }

// numeric returns the value as a float64 for ordered-domain comparisons,
// unifying TypeInt and TypeFloat so RangeFilter doesn't need two code
// paths.
func (v Value) numeric() (float64, bool) {
	switch v.Type {
	case TypeInt:
		return float64(v.Int), true
	case TypeFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Chunk is a batch of values for a single column, as produced by a
// ColumnChunkIterator. Null values are expected to be present in raw chunks
// — filters drop them during construction, per the one-sided contract in
// spec.md §4.1.
type Chunk []Value

// ColumnChunkIterator is a lazy, finite, single-pass sequence of Chunks for
// one column. Construction of a filter consumes an iterator to exhaustion;
// a fresh iterator is required for each independent pass (the build
// pipeline is responsible for reopening one when the strategy selector has
// already exhausted its own).
type ColumnChunkIterator interface {
	// Next returns the next chunk, or ok=false when the stream is
	// exhausted. A non-nil error aborts iteration immediately.
	Next() (chunk Chunk, ok bool, err error)
}

// Filter is the uniform capability exposed by every variant. Once returned
// from a Build* constructor, a Filter is immutable for query purposes —
// nothing in this package mutates a Filter's test-relevant state after
// construction.
type Filter interface {
	// Kind returns the variant's nominal tag, used for manifest
	// round-tripping and blob headers.
	Kind() Kind

	// Test probes the filter. false means v is provably absent from the
	// ingested data; true means it may be present (exact, for
	// non-probabilistic variants). Returns petalserr with KindTypeMismatch
	// if v's Type is incompatible with the filter's domain.
	Test(v Value) (bool, error)

	// Serialize produces an opaque blob sufficient to reconstruct this
	// filter's exact state via Deserialize.
	Serialize() ([]byte, error)
}

// unsupportedType is a shared helper for variants to report a Test call
// against an incompatible value type.
func unsupportedType(kind Kind, t Type) error {
	return petalserr.TypeMismatch("%s filter cannot test a %s value", kind, t)
}

func emptyInput(kind Kind) error {
	return petalserr.Newf(petalserr.KindEmptyInput, "%s filter built from a stream with no non-null values", kind)
}
