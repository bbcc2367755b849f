package summary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// archiveMagic identifies the summary_bandN.arc format: three named
// float32 vectors of equal length, little-endian.
var archiveMagic = [4]byte{'S', 'A', 'R', 'C'}

// WriteFile persists a Triple to path in the summary_bandN.arc format
// spec.md §6 names.
func WriteFile(path string, t Triple) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("summary: create archive: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Write(w, t); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("summary: flush archive: %w", err)
	}
	return f.Sync()
}

// Write encodes a Triple onto w.
func Write(w io.Writer, t Triple) error {
	if len(t.Max) != len(t.Avg) || len(t.Max) != len(t.Min) {
		return fmt.Errorf("summary: mismatched vector lengths (max=%d avg=%d min=%d)", len(t.Max), len(t.Avg), len(t.Min))
	}
	if _, err := w.Write(archiveMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Max))); err != nil {
		return err
	}
	for _, vec := range [][]float32{t.Max, t.Avg, t.Min} {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("summary: write vector: %w", err)
		}
	}
	return nil
}

// ReadFile loads a Triple from a summary_bandN.arc file.
func ReadFile(path string) (Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return Triple{}, fmt.Errorf("summary: open archive: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Read decodes a Triple from r.
func Read(r io.Reader) (Triple, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Triple{}, fmt.Errorf("summary: read magic: %w", err)
	}
	if magic != archiveMagic {
		return Triple{}, fmt.Errorf("summary: bad archive magic %q", magic)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Triple{}, fmt.Errorf("summary: read length: %w", err)
	}
	t := Triple{
		Max: make([]float32, n),
		Avg: make([]float32, n),
		Min: make([]float32, n),
	}
	for _, vec := range [][]float32{t.Max, t.Avg, t.Min} {
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return Triple{}, fmt.Errorf("summary: read vector: %w", err)
		}
	}
	return t, nil
}
