package decoder

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLOpener_ReadsValidRecordsAndSkipsBad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.jsonl")
	content := `{"timestamp":0,"freqs":[1,2,3],"power":[-90,-91,-92]}
not json at all
{"timestamp":1,"freqs":[1,2],"power":[-90,-91,-92]}
{"timestamp":2,"freqs":[1,2,3],"power":[-80,-81,-82]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	it, err := (JSONLOpener{}).Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer it.Close()

	var good int
	var skipped int
	for {
		_, err := it.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrSkipRecord) {
			skipped++
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		good++
	}
	if good != 2 {
		t.Fatalf("expected 2 valid records, got %d", good)
	}
	if skipped != 2 {
		t.Fatalf("expected 2 skipped records (bad JSON + mismatched lengths), got %d", skipped)
	}
}
