// Package query implements the predicate grammar and recursive AND/OR
// evaluator described in spec.md §4.5: composite and atomic predicates
// over catalog-indexed fields, reduced to a surviving shard set.
package query

import (
	"encoding/json"
	"strings"

	"github.com/dreamware/petals/internal/filter"
	"github.com/dreamware/petals/internal/petalserr"
)

// Predicate is a recursive sum type: either a Composite of child
// predicates joined by AND/OR, or an Atom testing one field against one
// value.
type Predicate struct {
	Condition string          `json:"condition,omitempty"`
	Rules     []Predicate     `json:"rules,omitempty"`
	Field     string          `json:"field,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// IsComposite reports whether p is a Composite node (has a condition
// tag or rules, or both) rather than an Atom.
func (p Predicate) IsComposite() bool {
	return p.Condition != "" || len(p.Rules) > 0
}

// atomValue decodes an Atom's raw JSON value into a filter.Value. The
// wire predicate carries no column type (see the §6 query envelope
// example: {"field": "status", "value": "inactive"}), so the Go type
// JSON decoding naturally produces drives the mapping: strings become
// StringValue, booleans BoolValue, and numbers IntValue when they carry
// no fractional part or FloatValue otherwise. A probe this derives is
// still subject to each filter's own TypeMismatch check at Test time.
func atomValue(raw json.RawMessage) (filter.Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return filter.Value{}, petalserr.Wrap(petalserr.KindMalformedPredicate, "", err)
	}
	switch t := v.(type) {
	case string:
		return filter.StringValue(t), nil
	case bool:
		return filter.BoolValue(t), nil
	case float64:
		if t == float64(int64(t)) {
			return filter.IntValue(int64(t)), nil
		}
		return filter.FloatValue(t), nil
	default:
		return filter.Value{}, petalserr.Newf(petalserr.KindMalformedPredicate, "unsupported atom value %v", v)
	}
}

// normalizeCondition validates and lowercases a composite's condition
// tag. The condition tag is case-insensitive per spec — "AND" and "and"
// are equivalent — resolving the source's inconsistent case comparison.
func normalizeCondition(raw string) (string, error) {
	lower := strings.ToLower(raw)
	if lower != "and" && lower != "or" {
		return "", petalserr.Newf(petalserr.KindMalformedPredicate, "unknown condition %q", raw)
	}
	return lower, nil
}
