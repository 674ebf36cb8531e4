package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Quarter overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
			epsilon:  0.001,
		},
		{
			name:     "Horizontal shift",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 0, 125, 100},
			expected: 0.6, // 7500 / 12500
			epsilon:  0.0001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, float64(tt.epsilon))

			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.Equal(t, result, reverse, "IoU should be symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}},
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"Full overlap", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}},
		{"Large boxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 1920, 1080}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			customResult := CalculateIoU(tc.r1, tc.r2)

			ir1 := image.Rect(tc.r1.X1, tc.r1.Y1, tc.r1.X2, tc.r1.Y2)
			ir2 := image.Rect(tc.r2.X1, tc.r2.Y1, tc.r2.X2, tc.r2.Y2)
			imageResult := imageRectangleIoU(ir1, ir2)

			if math.Abs(float64(customResult-imageResult)) > 0.0001 {
				t.Errorf("Results differ: custom=%v, image.Rectangle=%v", customResult, imageResult)
			}
		})
	}
}

func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea

	return float32(intersectArea) / float32(union)
}

// TestIoU_EdgeCases tests degenerate and boundary inputs.
func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Zero area rectangle 1", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}, 0},
		{"Zero area rectangle 2", Rect{0, 0, 100, 100}, Rect{50, 50, 50, 50}, 0},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{0, 0, 0, 0}, 0},
		{"Zero width line inside", Rect{10, 0, 10, 100}, Rect{0, 0, 100, 100}, 0},
		{"Inverted rectangle", Rect{100, 100, 0, 0}, Rect{0, 0, 100, 100}, 0},
		{"Negative coordinates", Rect{-100, -100, 0, 0}, Rect{-50, -50, 50, 50}, 2500.0 / 17500.0},
		{"Single pixel", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r1, tt.r2), 1e-6)
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r2, tt.r1), 1e-6)
		})
	}
}

func TestBox_Conversions(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 30, H: 40}

	assert.Equal(t, Rect{X1: 10, Y1: 20, X2: 40, Y2: 60}, b.Rect())
	assert.Equal(t, image.Rect(10, 20, 40, 60), b.Rectangle())
	assert.Equal(t, "[x=10 y=20 w=30 h=40]", b.String())

	cx, cy := b.Center()
	assert.Equal(t, float32(25), cx)
	assert.Equal(t, float32(40), cy)
	assert.False(t, b.Degenerate())

	assert.True(t, Box{X: 5, Y: 5, W: 0, H: 10}.Degenerate())
	assert.True(t, Box{X: 5, Y: 5, W: 10, H: -1}.Degenerate())
}

func TestBoxIoU_ReflexiveAndSymmetric(t *testing.T) {
	boxes := []Box{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: -20, Y: 5, W: 40, H: 7},
		{X: 300, Y: 200, W: 1, H: 1},
		{X: 5, Y: 5, W: 20, H: 20},
	}

	for _, a := range boxes {
		assert.Equal(t, float32(1), BoxIoU(a, a), "box %s", a)
		for _, b := range boxes {
			assert.Equal(t, BoxIoU(a, b), BoxIoU(b, a), "%s vs %s", a, b)
		}
	}
}
