package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Default blob parameters for the 608x608 YOLOv3 input.
const (
	DefaultInputSize = 608
	DefaultBlobScale = 0.00392
)

// BlobConfig describes how an image becomes the network input tensor.
type BlobConfig struct {
	// Size is the square input width and height in pixels.
	Size int `yaml:"size" json:"size"`
	// Scale multiplies every 8-bit channel value.
	Scale float32 `yaml:"scale" json:"scale"`
	// SwapRB orders the planes R, G, B when set and B, G, R otherwise.
	SwapRB bool `yaml:"swap_rb" json:"swap_rb"`
}

// DefaultBlobConfig returns the blob parameters YOLOv3 was trained with.
func DefaultBlobConfig() BlobConfig {
	return BlobConfig{Size: DefaultInputSize, Scale: DefaultBlobScale, SwapRB: true}
}

// Len returns the number of floats in one NCHW blob.
func (c BlobConfig) Len() int {
	return 3 * c.Size * c.Size
}

// PrepareInput writes img into dst as a planar NCHW blob with a batch of one.
// The image is stretched to Size x Size without preserving its aspect ratio.
//
// Arguments:
//   - img: The image to prepare.
//   - cfg: The blob parameters.
//   - dst: The destination buffer, at least cfg.Len() floats.
//
// Returns:
//   - error: An error if dst is too small.
func PrepareInput(img image.Image, cfg BlobConfig, dst []float32) error {
	if cfg.Size <= 0 {
		return errors.Errorf("invalid input size %d", cfg.Size)
	}
	channelSize := cfg.Size * cfg.Size
	if len(dst) < cfg.Len() {
		return errors.Errorf("destination holds %d floats, needs %d", len(dst), cfg.Len())
	}

	first := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	third := dst[channelSize*2 : channelSize*3]

	size := uint(cfg.Size)
	img = resize.Resize(size, size, img, resize.Bilinear)
	b := img.Bounds()

	i := 0
	for y := 0; y < cfg.Size; y++ {
		for x := 0; x < cfg.Size; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rf := float32(r>>8) * cfg.Scale
			bf := float32(bl>>8) * cfg.Scale
			if cfg.SwapRB {
				first[i], third[i] = rf, bf
			} else {
				first[i], third[i] = bf, rf
			}
			green[i] = float32(g>>8) * cfg.Scale
			i++
		}
	}
	return nil
}
