// Package tabular adapts delimited-text tabular files to the filter
// package's ColumnChunkIterator contract. It is deliberately thin: reading
// real columnar formats (Parquet, ORC) is an external collaborator, and
// this package exists only so the build pipeline has something concrete
// to drive its own tests with.
package tabular

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/dreamware/petals/internal/filter"
)

// ColumnSource reads one column out of a delimited-text file, exposing it
// as a sequence of fixed-size chunks. Each call to Open starts an
// independent pass over the underlying reader — the build pipeline needs
// this because the strategy selector's sampling pass and the filter
// constructor's build pass must each see the full stream from the start.
type ColumnSource struct {
	newReader func() (io.ReadCloser, error)
	column    string
	logical   filter.Type
	chunkSize int
}

// NewColumnSource returns a ColumnSource over the named CSV column.
// newReader must return a fresh, independently-seeked reader on every
// call. logical declares how raw field text is coerced to a Value.
func NewColumnSource(newReader func() (io.ReadCloser, error), column string, logical filter.Type, chunkSize int) *ColumnSource {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &ColumnSource{newReader: newReader, column: column, logical: logical, chunkSize: chunkSize}
}

// PeekHeader opens a fresh reader via newReader and returns its CSV
// header row, then closes the reader. It lets the build pipeline
// discover a shard's column list without committing to a logical type
// for any of them.
func PeekHeader(newReader func() (io.ReadCloser, error)) ([]string, error) {
	rc, err := newReader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	return r.Read()
}

// Open starts a fresh pass over the column, returning a ColumnChunkIterator.
func (s *ColumnSource) Open() (filter.ColumnChunkIterator, error) {
	rc, err := s.newReader()
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		rc.Close()
		return nil, err
	}
	idx := -1
	for i, h := range header {
		if h == s.column {
			idx = i
			break
		}
	}
	if idx < 0 {
		rc.Close()
		return nil, io.EOF
	}

	return &csvColumnIterator{
		closer:    rc,
		reader:    r,
		colIndex:  idx,
		logical:   s.logical,
		chunkSize: s.chunkSize,
	}, nil
}

type csvColumnIterator struct {
	closer    io.Closer
	reader    *csv.Reader
	colIndex  int
	logical   filter.Type
	chunkSize int
	done      bool
}

// Next returns up to chunkSize coerced values per call. Blank fields are
// reported as null and filtered out by filter constructors, per the
// column-chunk contract.
func (it *csvColumnIterator) Next() (filter.Chunk, bool, error) {
	if it.done {
		return nil, false, nil
	}

	chunk := make(filter.Chunk, 0, it.chunkSize)
	for len(chunk) < it.chunkSize {
		record, err := it.reader.Read()
		if err == io.EOF {
			it.done = true
			it.closer.Close()
			break
		}
		if err != nil {
			it.closer.Close()
			return nil, false, err
		}
		if it.colIndex >= len(record) {
			continue
		}
		v, err := coerce(record[it.colIndex], it.logical)
		if err != nil {
			it.closer.Close()
			return nil, false, err
		}
		chunk = append(chunk, v)
	}

	if len(chunk) == 0 {
		return nil, false, nil
	}
	return chunk, true, nil
}

func coerce(raw string, t filter.Type) (filter.Value, error) {
	if raw == "" {
		return filter.NullValue(t), nil
	}
	switch t {
	case filter.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter.Value{}, err
		}
		return filter.IntValue(n), nil
	case filter.TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter.Value{}, err
		}
		return filter.FloatValue(f), nil
	case filter.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return filter.Value{}, err
		}
		return filter.BoolValue(b), nil
	case filter.TypeDate:
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter.Value{}, err
		}
		return filter.DateValue(d), nil
	case filter.TypeTimestamp:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter.Value{}, err
		}
		return filter.TimestampValue(ts), nil
	case filter.TypeString:
		return filter.StringValue(raw), nil
	default:
		return filter.StringValue(raw), nil
	}
}
