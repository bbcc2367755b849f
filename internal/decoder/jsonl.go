package decoder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cwsl/sdrindex/internal/trace"
)

// JSONLOpener opens a newline-delimited JSON file of already-decoded
// trace records. It stands in for the real capture-chunk wire decoder,
// which is external to this module (spec.md §1): production wiring
// supplies its own Opener once the upstream decoder has turned rotated
// binary chunks into records, but the batch command still needs a
// concrete Opener to run end to end against fixtures and local tooling.
type JSONLOpener struct{}

// jsonlIterator reads one JSON object per line, validating each record
// before handing it to the classifier. A line that fails to parse or
// fails Record.Validate is a DecodeSkip (ErrSkipRecord), not fatal.
type jsonlIterator struct {
	f       *os.File
	scanner *bufio.Scanner
}

func (JSONLOpener) Open(path string) (Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoder: open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &jsonlIterator{f: f, scanner: scanner}, nil
}

func (it *jsonlIterator) Next() (trace.Record, error) {
	if !it.scanner.Scan() {
		if err := it.scanner.Err(); err != nil {
			return trace.Record{}, fmt.Errorf("decoder: read: %w", err)
		}
		return trace.Record{}, io.EOF
	}
	line := it.scanner.Bytes()
	if len(line) == 0 {
		return trace.Record{}, ErrSkipRecord
	}

	var rec trace.Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return trace.Record{}, fmt.Errorf("%w: %v", ErrSkipRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return trace.Record{}, fmt.Errorf("%w: %v", ErrSkipRecord, err)
	}
	return rec, nil
}

func (it *jsonlIterator) Close() error {
	return it.f.Close()
}
