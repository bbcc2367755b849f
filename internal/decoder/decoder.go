// Package decoder defines the collaborator interface the capture wire
// decoder must satisfy. The decoder itself (parsing the rotated binary
// chunk format) is external to this module per spec.md §1 — this package
// carries the contract, a small in-memory fake used by tests and by
// callers who already have decoded records in hand, and JSONLOpener,
// which reads already-decoded records from newline-delimited JSON.
package decoder

import (
	"errors"
	"io"

	"github.com/cwsl/sdrindex/internal/trace"
)

// ErrSkipRecord, when wrapped into the error returned by Iterator.Next,
// tells the caller the current record failed to decode but the stream
// itself is healthy: spec.md §7's DecodeSkip. Any other non-nil, non-io.EOF
// error from Next is a DecodeFatal and must propagate.
var ErrSkipRecord = errors.New("decoder: record skipped")

// Iterator yields decoded trace records in file order. Next returns
// io.EOF once the stream is exhausted.
type Iterator interface {
	Next() (trace.Record, error)
	Close() error
}

// Opener opens a chunk file and returns a lazy record iterator. Production
// wiring supplies a real implementation that parses the capture format;
// this module has no capture-format parser, only JSONLOpener for
// already-decoded records.
type Opener interface {
	Open(path string) (Iterator, error)
}

// SliceIterator is a fixed-content Iterator, useful for tests and for
// driving the pipeline from records that have already been decoded
// in-process.
type SliceIterator struct {
	records []trace.Record
	errs    []error // errs[i], if non-nil, is returned instead of records[i]
	pos     int
}

// NewSliceIterator builds an Iterator over records, none of which fail to
// decode.
func NewSliceIterator(records []trace.Record) *SliceIterator {
	return &SliceIterator{records: records}
}

// NewFaultySliceIterator builds an Iterator where some positions return an
// error (wrapped in ErrSkipRecord for a recoverable fault, or any other
// error for a fatal one) instead of a record. errs must be the same length
// as records; a nil entry means that record decodes normally.
func NewFaultySliceIterator(records []trace.Record, errs []error) *SliceIterator {
	return &SliceIterator{records: records, errs: errs}
}

func (s *SliceIterator) Next() (trace.Record, error) {
	if s.pos >= len(s.records) {
		return trace.Record{}, io.EOF
	}
	i := s.pos
	s.pos++
	if s.errs != nil && s.errs[i] != nil {
		return trace.Record{}, s.errs[i]
	}
	return s.records[i], nil
}

func (s *SliceIterator) Close() error { return nil }
