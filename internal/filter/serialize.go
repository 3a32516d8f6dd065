package filter

import (
	"fmt"

	"github.com/dreamware/petals/internal/petalserr"
)

// blobVersion is the format version written into every serialized blob's
// header. A mismatch on read is a hard failure rather than a silent
// best-effort decode — resolves the versioning open question in spec.md §9.
const blobVersion = 1

// variantTag assigns each Kind a stable single byte for the blob header.
// Order matches the table in spec.md §3; never renumber a shipped tag.
var variantTag = map[Kind]byte{
	KindBloom:        1,
	KindRange:        2,
	KindSet:          3,
	KindFuzzyString:  4,
	KindDate:         5,
	KindIntervalTree: 6,
	KindKDTree:       7,
	KindBitVector:    8,
}

var tagVariant = func() map[byte]Kind {
	m := make(map[byte]Kind, len(variantTag))
	for k, v := range variantTag {
		m[v] = k
	}
	return m
}()

// envelope prepends the (variant, version) header to a variant's raw
// payload bytes.
func envelope(kind Kind, payload []byte) ([]byte, error) {
	tag, ok := variantTag[kind]
	if !ok {
		return nil, fmt.Errorf("filter: unknown variant %q", kind)
	}
	out := make([]byte, 0, len(payload)+2)
	out = append(out, tag, blobVersion)
	out = append(out, payload...)
	return out, nil
}

// splitEnvelope validates and strips the header, returning the variant Kind
// and the remaining payload bytes.
func splitEnvelope(blob []byte) (Kind, []byte, error) {
	if len(blob) < 2 {
		return "", nil, petalserr.Newf(petalserr.KindFilterLoadFailed, "blob too short: %d bytes", len(blob))
	}
	tag, version := blob[0], blob[1]
	kind, ok := tagVariant[tag]
	if !ok {
		return "", nil, petalserr.Newf(petalserr.KindFilterLoadFailed, "unknown variant tag %d", tag)
	}
	if version != blobVersion {
		return "", nil, petalserr.Newf(petalserr.KindFilterLoadFailed,
			"blob format version %d unsupported, expected %d", version, blobVersion)
	}
	return kind, blob[2:], nil
}

// Deserialize reconstructs a Filter from a blob produced by Serialize,
// dispatching on the variant tag in the header. This is the single entry
// point the catalog's lazy loader calls; it never needs to know which
// concrete variant a path holds ahead of time.
func Deserialize(blob []byte) (Filter, error) {
	kind, payload, err := splitEnvelope(blob)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindBloom:
		return deserializeBloom(payload)
	case KindRange:
		return deserializeRange(payload)
	case KindSet:
		return deserializeSet(payload)
	case KindFuzzyString:
		return deserializeFuzzyString(payload)
	case KindDate:
		return deserializeDate(payload)
	case KindIntervalTree:
		return deserializeIntervalTree(payload)
	case KindKDTree:
		return deserializeKDTree(payload)
	case KindBitVector:
		return deserializeBitVector(payload)
	default:
		return nil, petalserr.Newf(petalserr.KindFilterLoadFailed, "no deserializer registered for %q", kind)
	}
}
