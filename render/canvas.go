package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is a drawing surface. Implementations must tolerate shapes that lie
// partly or entirely outside the surface, and degenerate rectangles.
type Canvas interface {
	// Rectangle outlines r with lines of the given thickness.
	Rectangle(r image.Rectangle, c color.RGBA, thickness int)
	// Text draws text with org as the bottom-left corner of the first glyph.
	Text(text string, org image.Point, c color.RGBA)
}

// ImageCanvas draws onto a Go image using a bitmap font.
type ImageCanvas struct {
	Dst  draw.Image
	Face font.Face
}

// NewImageCanvas returns a canvas over dst using the 7x13 basic font.
func NewImageCanvas(dst draw.Image) *ImageCanvas {
	return &ImageCanvas{Dst: dst, Face: basicfont.Face7x13}
}

// Rectangle draws the outline as four filled strips centered on the edges.
// draw.Draw clips every strip to the destination bounds.
func (c *ImageCanvas) Rectangle(r image.Rectangle, clr color.RGBA, thickness int) {
	r = r.Canon()
	t := max(thickness, 1)
	lo := t / 2
	hi := t - lo
	src := image.NewUniform(clr)

	strips := []image.Rectangle{
		image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Min.Y+hi), // top
		image.Rect(r.Min.X-lo, r.Max.Y-lo, r.Max.X+hi, r.Max.Y+hi), // bottom
		image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Min.X+hi, r.Max.Y+hi), // left
		image.Rect(r.Max.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Max.Y+hi), // right
	}
	for _, s := range strips {
		draw.Draw(c.Dst, s.Intersect(c.Dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

// Text draws text starting at the baseline point org.
func (c *ImageCanvas) Text(text string, org image.Point, clr color.RGBA) {
	d := &font.Drawer{
		Dst:  c.Dst,
		Src:  image.NewUniform(clr),
		Face: c.Face,
		Dot:  fixed.P(org.X, org.Y),
	}
	d.DrawString(text)
}
