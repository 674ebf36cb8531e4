// Package images - Image geometry and I/O helpers for the detection pipeline.
package images

import (
	"fmt"
	"image"
)

// Rect is a lightweight corner-form bounding box.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Area returns the signed area of the rectangle. Inverted rectangles yield a
// negative or zero area.
func (r Rect) Area() int {
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Box is a bounding box in absolute pixel coordinates described by its
// top-left corner and its extent. Values may lie outside the image and W or H
// may be zero or negative for degenerate network output.
type Box struct {
	X, Y, W, H int
}

// Rect converts the box into corner form.
func (b Box) Rect() Rect {
	return Rect{X1: b.X, Y1: b.Y, X2: b.X + b.W, Y2: b.Y + b.H}
}

// Rectangle converts the box into an image.Rectangle without canonicalizing
// it, so degenerate boxes stay degenerate.
func (b Box) Rectangle() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: b.X, Y: b.Y},
		Max: image.Point{X: b.X + b.W, Y: b.Y + b.H},
	}
}

// Center returns the center point of the box in float32 precision.
func (b Box) Center() (float32, float32) {
	return float32(b.X) + float32(b.W)/2, float32(b.Y) + float32(b.H)/2
}

// Degenerate reports whether the box has no positive area.
func (b Box) Degenerate() bool {
	return b.W <= 0 || b.H <= 0
}

func (b Box) String() string {
	return fmt.Sprintf("[x=%d y=%d w=%d h=%d]", b.X, b.Y, b.W, b.H)
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the rectangles are identical and 0.0 means they do not
// overlap at all. Rectangles with no positive area never overlap anything, and
// a union of zero (or less) yields 0.0 instead of a division by zero.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	// The intersection starts where both rectangles have begun and ends as soon
	// as the first one ends.
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}

// BoxIoU is CalculateIoU for boxes in top-left/extent form.
func BoxIoU(a, b Box) float32 {
	return CalculateIoU(a.Rect(), b.Rect())
}
