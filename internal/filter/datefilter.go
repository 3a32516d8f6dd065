package filter

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/dreamware/petals/internal/petalserr"
)

// DefaultDateFormat matches the source implementation's canonical date
// layout.
const DefaultDateFormat = "2006-01-02"

// DateParams configures a date build. Format is the canonical layout used
// when a probe value arrives as a string rather than a parsed time.Time.
type DateParams struct {
	Format string
}

// DefaultDateParams returns DateParams using DefaultDateFormat.
func DefaultDateParams() DateParams { return DateParams{Format: DefaultDateFormat} }

// DateFilter summarizes a date column by its (min, max) calendar-date
// bounds. Test is exact: min <= date(v) <= max.
type DateFilter struct {
	min, max time.Time
	format   string
}

func (f *DateFilter) Kind() Kind { return KindDate }

func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildDateFromStream computes the global min/max calendar date in a single
// pass.
func BuildDateFromStream(it ColumnChunkIterator, params DateParams) (*DateFilter, error) {
	var min, max time.Time
	haveAny := false

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
			if v.Type != TypeDate && v.Type != TypeTimestamp {
				return nil, unsupportedType(KindDate, v.Type)
			}
			d := toDate(v.Time)
			if !haveAny {
				min, max, haveAny = d, d, true
				continue
			}
			if d.Before(min) {
				min = d
			}
			if d.After(max) {
				max = d
			}
		}
	}

	if !haveAny {
		return nil, emptyInput(KindDate)
	}
	format := params.Format
	if format == "" {
		format = DefaultDateFormat
	}
	return &DateFilter{min: min, max: max, format: format}, nil
}

func (f *DateFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		if v.Type != TypeDate && v.Type != TypeTimestamp {
			return unsupportedType(KindDate, v.Type)
		}
		d := toDate(v.Time)
		if d.Before(f.min) {
			f.min = d
		}
		if d.After(f.max) {
			f.max = d
		}
	}
	return nil
}

func (f *DateFilter) Test(v Value) (bool, error) {
	var d time.Time
	switch v.Type {
	case TypeDate, TypeTimestamp:
		d = toDate(v.Time)
	case TypeString:
		parsed, err := time.Parse(f.format, v.Str)
		if err != nil {
			return false, petalserr.TypeMismatch("value %q does not match date format %q", v.Str, f.format)
		}
		d = toDate(parsed)
	default:
		return false, unsupportedType(KindDate, v.Type)
	}
	return !d.Before(f.min) && !d.After(f.max), nil
}

type datePayload struct {
	Min, Max time.Time
	Format   string
}

func (f *DateFilter) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(datePayload{Min: f.min, Max: f.max, Format: f.format}); err != nil {
		return nil, err
	}
	return envelope(KindDate, buf.Bytes())
}

func deserializeDate(payload []byte) (Filter, error) {
	var p datePayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	return &DateFilter{min: p.Min, max: p.Max, format: p.Format}, nil
}
