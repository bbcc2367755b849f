package query

import (
	"bytes"
	"image"
	"image/png"

	"github.com/cwsl/sdrindex/internal/quantise"
	"github.com/cwsl/sdrindex/internal/waterfall"
)

// TileResponse is the waterfall_tile() result of spec.md §4.7: a PNG
// plus the axis bounds it actually covers, since a requested window is
// clamped to the band's available data before rendering.
type TileResponse struct {
	PNG       []byte
	Width     int
	Height    int
	FreqStart float64
	FreqEnd   float64
	TimeStart int64
	TimeEnd   int64
}

// WaterfallTile renders a box-averaged, colormapped PNG tile from a
// sealed store. A requested window that falls entirely outside the
// store's axes, or has f0>=f1 or t0>=t1, collapses to an empty
// TileResponse rather than an error (spec.md §7).
func WaterfallTile(store *waterfall.Store, freqs []float64, relT []int64, rng quantise.Range, f0, f1 float64, t0, t1 int64, maxW, maxT int) TileResponse {
	if maxW <= 0 {
		maxW = 1
	}
	if maxT <= 0 {
		maxT = 1
	}
	if len(freqs) == 0 || len(relT) == 0 {
		return TileResponse{}
	}
	if f0 >= f1 || t0 >= t1 {
		return TileResponse{}
	}
	if f1 < freqs[0] || f0 > freqs[len(freqs)-1] {
		return TileResponse{}
	}
	if t1 < relT[0] || t0 > relT[len(relT)-1] {
		return TileResponse{}
	}

	lo, hi := f0, f1
	if lo < freqs[0] {
		lo = freqs[0]
	}
	if hi > freqs[len(freqs)-1] {
		hi = freqs[len(freqs)-1]
	}
	c0, c1 := windowIndices(freqs[0], freqs[len(freqs)-1], len(freqs), lo, hi)

	tlo, thi := t0, t1
	if tlo < relT[0] {
		tlo = relT[0]
	}
	if thi > relT[len(relT)-1] {
		thi = relT[len(relT)-1]
	}
	r0, r1 := timeIndices(relT, tlo, thi)

	nColsIn := c1 - c0 + 1
	nRowsIn := r1 - r0 + 1
	width := nColsIn
	if width > maxW {
		width = maxW
	}
	height := nRowsIn
	if height > maxT {
		height = maxT
	}

	colBounds := downsampleBounds(nColsIn, width)
	rowBounds := downsampleBounds(nRowsIn, height)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for oy := 0; oy < height; oy++ {
		rStart, rEnd := r0+rowBounds[oy], r0+rowBounds[oy+1]
		for ox := 0; ox < width; ox++ {
			cStart, cEnd := c0+colBounds[ox], c0+colBounds[ox+1]
			avg := boxAverage(store, rng, rStart, rEnd, cStart, cEnd)
			// PNG row 0 is the top of the image; rows are flipped so the
			// earliest trace sits at the bottom and the newest at the top.
			img.Set(ox, height-1-oy, colorFor(avg, rng.DBMin, rng.DBMax))
		}
	}

	var buf bytes.Buffer
	// png.Encode only errors on a broken Writer; bytes.Buffer never fails.
	_ = png.Encode(&buf, img)

	return TileResponse{
		PNG:       buf.Bytes(),
		Width:     width,
		Height:    height,
		FreqStart: freqs[c0],
		FreqEnd:   freqs[c1],
		TimeStart: relT[r0],
		TimeEnd:   relT[r1],
	}
}

// boxAverage averages the dequantised dB value of every cell in the
// half-open [rStart,rEnd) x [cStart,cEnd) box.
func boxAverage(store *waterfall.Store, rng quantise.Range, rStart, rEnd, cStart, cEnd int) float64 {
	sum := 0.0
	n := 0
	for i := rStart; i < rEnd; i++ {
		for j := cStart; j < cEnd; j++ {
			sum += rng.Dequantise(store.At(i, j))
			n++
		}
	}
	if n == 0 {
		return rng.DBMin
	}
	return sum / float64(n)
}

// downsampleBounds returns outN+1 monotone boundaries partitioning
// [0, n) into outN contiguous boxes via floor division, with the final
// boundary forced to n so the last box absorbs any residual from an
// odd downsample ratio (spec.md §4.7).
func downsampleBounds(n, outN int) []int {
	bounds := make([]int, outN+1)
	for i := 0; i <= outN; i++ {
		bounds[i] = (n * i) / outN
	}
	bounds[outN] = n
	return bounds
}

// timeIndices returns the inclusive row index range whose rel_t values
// fall within [lo, hi].
func timeIndices(relT []int64, lo, hi int64) (int, int) {
	l0, h0 := -1, -1
	for i, t := range relT {
		if t >= lo && l0 == -1 {
			l0 = i
		}
		if t <= hi {
			h0 = i
		}
	}
	if l0 == -1 {
		l0 = 0
	}
	if h0 == -1 {
		h0 = len(relT) - 1
	}
	if h0 < l0 {
		h0 = l0
	}
	return l0, h0
}
