// Package waterfall implements the waterfall writer of spec.md §4.4: a
// two-phase (scratch-then-final) writer that produces the random-access,
// memory-mapped int16 matrix the query surface serves tiles from.
package waterfall

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// Store is a sealed, memory-mapped waterfall matrix: n_traces rows of
// n_freqs little-endian int16 samples each, row-major, no header
// (spec.md §6's waterfall_bandN.dat).
type Store struct {
	path    string
	data    []byte
	nTraces int
	nFreqs  int
}

// rowBytes is the byte width of one row.
func (s *Store) rowBytes() int { return 2 * s.nFreqs }

// NTraces returns the number of rows.
func (s *Store) NTraces() int { return s.nTraces }

// NFreqs returns the number of columns.
func (s *Store) NFreqs() int { return s.nFreqs }

// Row returns row i as a slice of int16 codes, copied out of the
// memory-mapped file.
func (s *Store) Row(i int) []int16 {
	off := i * s.rowBytes()
	raw := s.data[off : off+s.rowBytes()]
	out := make([]int16, s.nFreqs)
	for j := range out {
		out[j] = int16(binary.LittleEndian.Uint16(raw[2*j:]))
	}
	return out
}

// At returns the int16 code at (row, col).
func (s *Store) At(row, col int) int16 {
	off := row*s.rowBytes() + 2*col
	return int16(binary.LittleEndian.Uint16(s.data[off:]))
}

// Close unmaps the store. Safe to call once.
func (s *Store) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}

// Open memory-maps an existing, sealed waterfall_bandN.dat file for
// read-only access. nTraces/nFreqs come from the band's meta_bandN.json
// and are required to interpret the flat file.
func Open(path string, nTraces, nFreqs int) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("waterfall: stat %s: %w", path, err)
	}
	want := int64(2) * int64(nTraces) * int64(nFreqs)
	if info.Size() != want {
		return nil, fmt.Errorf("waterfall: %s has size %d, expected %d (n_traces=%d * n_freqs=%d * 2)", path, info.Size(), want, nTraces, nFreqs)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("waterfall: open %s: %w", path, err)
	}
	defer f.Close()

	if info.Size() == 0 {
		return &Store{path: path, nTraces: nTraces, nFreqs: nFreqs}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("waterfall: mmap %s: %w", path, err)
	}
	return &Store{path: path, data: data, nTraces: nTraces, nFreqs: nFreqs}, nil
}

// checkDiskSpace guards against writing a store the filesystem cannot
// hold, surfaced as an IOFailure (spec.md §7) rather than a half-written
// file. It is a preflight, not a guarantee — concurrent writers on the
// same filesystem can still race it.
func checkDiskSpace(dir string, needBytes int64) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		// Disk stats are best-effort: a platform that can't report usage
		// shouldn't block a build that would otherwise succeed.
		return nil
	}
	if int64(usage.Free) < needBytes {
		return fmt.Errorf("waterfall: insufficient disk space in %s: need %d bytes, have %d free", dir, needBytes, usage.Free)
	}
	return nil
}

// createSealed allocates a file sized exactly to 2*nTraces*nFreqs bytes,
// memory-maps it read-write, and returns it ready for row-by-row writes
// via writeRow. The file is created under a temporary name; the caller
// publishes it under its sealed name with os.Rename once every row is
// written (spec.md §4.4's rename-on-complete pattern).
func createSealed(tmpPath string, nTraces, nFreqs int) (*os.File, []byte, error) {
	size := int64(2) * int64(nTraces) * int64(nFreqs)
	if err := checkDiskSpace(filepath.Dir(tmpPath), size); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("waterfall: create %s: %w", tmpPath, err)
	}
	if size == 0 {
		return f, nil, nil
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, nil, fmt.Errorf("waterfall: truncate %s to %d: %w", tmpPath, size, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, nil, fmt.Errorf("waterfall: mmap %s: %w", tmpPath, err)
	}
	return f, data, nil
}

func writeRow(data []byte, rowIdx, nFreqs int, row []int16) {
	off := rowIdx * 2 * nFreqs
	for j, v := range row {
		binary.LittleEndian.PutUint16(data[off+2*j:], uint16(v))
	}
}
