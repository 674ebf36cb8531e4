// Package render - draws detections onto images.
package render

import (
	"image/color"
	"math/rand/v2"
	"time"
)

// Palette assigns a display color to every class index.
type Palette []color.RGBA

// fallback is used when a palette is empty.
var fallback = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// NewPalette generates n colors with channels drawn uniformly from [0, 255).
// The same non-zero seed always yields the same palette; a zero seed picks a
// random one.
//
// Arguments:
//   - n: The number of classes.
//   - seed: The random seed, or 0.
//
// Returns:
//   - Palette: n opaque colors.
func NewPalette(n int, seed uint64) Palette {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	p := make(Palette, max(n, 0))
	for i := range p {
		p[i] = color.RGBA{
			R: uint8(r.Float64() * 255),
			G: uint8(r.Float64() * 255),
			B: uint8(r.Float64() * 255),
			A: 255,
		}
	}
	return p
}

// Color returns the color for a class index, wrapping around the palette for
// indices beyond its size.
func (p Palette) Color(class int) color.RGBA {
	if len(p) == 0 {
		return fallback
	}
	i := class % len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}
