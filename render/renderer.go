package render

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
)

// Backend names a Renderer implementation.
type Backend string

const (
	// BackendNative draws with pure Go onto a copy of the image.
	BackendNative Backend = "native"
	// BackendGoCV draws with OpenCV onto a Mat converted from the image.
	BackendGoCV Backend = "gocv"
)

// Renderer produces one fully annotated image from a source image. The source
// is never modified.
type Renderer interface {
	Render(src image.Image, paint func(Canvas)) (image.Image, error)
}

// NewRenderer returns the renderer for a backend.
func NewRenderer(b Backend) (Renderer, error) {
	switch b {
	case BackendNative, "":
		return NativeRenderer{}, nil
	case BackendGoCV:
		return MatRenderer{}, nil
	default:
		return nil, errors.Errorf("unsupported renderer: %q", string(b))
	}
}

// NativeRenderer paints on an NRGBA copy of the source.
type NativeRenderer struct{}

// Render implements Renderer.
func (NativeRenderer) Render(src image.Image, paint func(Canvas)) (image.Image, error) {
	dst := images.Clone(src)
	paint(NewImageCanvas(dst))
	return dst, nil
}

// MatCanvas draws onto an OpenCV matrix with the Hershey Plain font.
type MatCanvas struct {
	Mat *gocv.Mat
}

// Rectangle implements Canvas.
func (c MatCanvas) Rectangle(r image.Rectangle, clr color.RGBA, thickness int) {
	gocv.Rectangle(c.Mat, r, clr, thickness)
}

// Text implements Canvas.
func (c MatCanvas) Text(text string, org image.Point, clr color.RGBA) {
	gocv.PutText(c.Mat, text, org, gocv.FontHersheyPlain, 1, clr, 1)
}

// MatRenderer converts the source to a BGR Mat, paints it with OpenCV and
// converts the result back.
type MatRenderer struct{}

// Render implements Renderer.
func (MatRenderer) Render(src image.Image, paint func(Canvas)) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, errors.Wrap(err, "convert image to mat")
	}
	defer mat.Close()

	paint(MatCanvas{Mat: &mat})

	out, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert mat to image")
	}
	return out, nil
}
