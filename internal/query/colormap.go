package query

import "image/color"

// anchor is one stop in a piecewise-linear colormap: t in [0,1] maps to
// an RGB triple.
type anchor struct {
	t       float64
	r, g, b uint8
}

// infernoAnchors approximates the "inferno" perceptual colormap with a
// handful of hand-picked stops (black, purple, red, orange, pale
// yellow). No pack example ships a colormap table to ground this on, so
// the stops are a standard-library-only construction (DESIGN.md notes
// the justification); the shape is common enough across spectrum
// analyzers that any reader would recognize it.
var infernoAnchors = []anchor{
	{0.00, 0, 0, 4},
	{0.25, 87, 16, 110},
	{0.50, 188, 55, 84},
	{0.75, 249, 142, 9},
	{1.00, 252, 255, 164},
}

// colormap is a precomputed 256-entry lookup table built once at package
// init from infernoAnchors.
var colormap [256]color.RGBA

func init() {
	for i := 0; i < 256; i++ {
		t := float64(i) / 255
		colormap[i] = interpAnchors(t)
	}
}

func interpAnchors(t float64) color.RGBA {
	if t <= infernoAnchors[0].t {
		a := infernoAnchors[0]
		return color.RGBA{a.r, a.g, a.b, 255}
	}
	last := infernoAnchors[len(infernoAnchors)-1]
	if t >= last.t {
		return color.RGBA{last.r, last.g, last.b, 255}
	}
	for i := 1; i < len(infernoAnchors); i++ {
		a0, a1 := infernoAnchors[i-1], infernoAnchors[i]
		if t <= a1.t {
			span := a1.t - a0.t
			f := 0.0
			if span > 0 {
				f = (t - a0.t) / span
			}
			return color.RGBA{
				lerp8(a0.r, a1.r, f),
				lerp8(a0.g, a1.g, f),
				lerp8(a0.b, a1.b, f),
				255,
			}
		}
	}
	return color.RGBA{last.r, last.g, last.b, 255}
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f)
}

// colorFor maps a dequantised dB value onto a colormap entry, normalised
// against the band's dynamic range (spec.md §4.7: "the same db_min/
// db_max the band was quantised with").
func colorFor(db, dbMin, dbMax float64) color.RGBA {
	if dbMax <= dbMin {
		return colormap[0]
	}
	f := (db - dbMin) / (dbMax - dbMin)
	switch {
	case f < 0:
		f = 0
	case f > 1:
		f = 1
	}
	idx := int(f * 255)
	return colormap[idx]
}
