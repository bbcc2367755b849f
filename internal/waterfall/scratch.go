package waterfall

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// scratchWriter is the append-only, pre-quantisation scratch file of
// spec.md §4.4: every row's power samples are appended as float32,
// zstd-compressed via klauspost/compress before they ever touch disk.
type scratchWriter struct {
	f   *os.File
	zw  *zstd.Encoder
	buf []byte
}

func newScratchWriter(path string) (*scratchWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("waterfall: create scratch %s: %w", path, err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("waterfall: zstd writer: %w", err)
	}
	return &scratchWriter{f: f, zw: zw}, nil
}

// WriteRow appends one row of float32 power samples to the scratch stream.
func (s *scratchWriter) WriteRow(row []float32) error {
	if cap(s.buf) < 4*len(row) {
		s.buf = make([]byte, 4*len(row))
	}
	buf := s.buf[:4*len(row)]
	for i, v := range row {
		binary.LittleEndian.PutUint32(buf[4*i:], float32bits(v))
	}
	_, err := s.zw.Write(buf)
	return err
}

// Close flushes and closes the scratch stream.
func (s *scratchWriter) Close() error {
	if err := s.zw.Close(); err != nil {
		s.f.Close()
		return fmt.Errorf("waterfall: close zstd writer: %w", err)
	}
	return s.f.Close()
}

// scratchReader reads rows back out of a scratch file sequentially, in
// the same float32, zstd-compressed format scratchWriter produces.
type scratchReader struct {
	f  *os.File
	zr *zstd.Decoder
	r  *bufio.Reader
}

func openScratchReader(path string) (*scratchReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("waterfall: open scratch %s: %w", path, err)
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("waterfall: zstd reader: %w", err)
	}
	return &scratchReader{f: f, zr: zr, r: bufio.NewReader(zr)}, nil
}

// ReadRow decodes the next row of nFreqs float32 values. Returns io.EOF
// once the stream is exhausted.
func (s *scratchReader) ReadRow(nFreqs int) ([]float32, error) {
	buf := make([]byte, 4*nFreqs)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("waterfall: truncated scratch row: %w", err)
		}
		return nil, err
	}
	row := make([]float32, nFreqs)
	for i := range row {
		row[i] = float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return row, nil
}

func (s *scratchReader) Close() error {
	s.zr.Close()
	return s.f.Close()
}
