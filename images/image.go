// Package images - Image decoding, scaling and encoding.
package images

import (
	"bytes"
	"image"
	"io"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrImageDecode is returned when raw bytes are not a decodable image.
var ErrImageDecode = errors.New("image decode failed")

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Decode decodes raw image bytes. EXIF orientation is applied so boxes line
// up with what a viewer shows.
//
// Arguments:
//   - data: The encoded image bytes (JPEG, PNG, ...).
//
// Returns:
//   - image.Image: The decoded image.
//   - error: ErrImageDecode wrapped with the decoder's reason.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrImageDecode, "image data is empty")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(ErrImageDecode, "%v", err)
	}
	return img, nil
}

// Scale resizes img by independent horizontal and vertical factors using
// bilinear interpolation. Target dimensions are rounded half to even, as
// OpenCV's cvRound does for fx/fy scaling, and never drop below one pixel.
//
// Arguments:
//   - img: The source image.
//   - fx: Horizontal scale factor.
//   - fy: Vertical scale factor.
//
// Returns:
//   - image.Image: The scaled image.
func Scale(img image.Image, fx, fy float64) image.Image {
	b := img.Bounds()
	w := max(int(math.RoundToEven(float64(b.Dx())*fx)), 1)
	h := max(int(math.RoundToEven(float64(b.Dy())*fy)), 1)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.Bilinear)
}

// Clone returns a mutable copy of img with its origin at (0, 0), so drawing
// never touches the decoded source.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	f, err := format.imaging()
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, f, imaging.JPEGQuality(95))
}

// Save writes img to path, picking the encoder from the file extension.
func Save(img image.Image, path string) error {
	if _, err := FormatFromExtension(filepath.Ext(path)); err != nil {
		return err
	}
	return errors.Wrapf(imaging.Save(img, path, imaging.JPEGQuality(95)), "save %s", path)
}
