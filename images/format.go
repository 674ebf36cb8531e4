package images

import (
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// Extension returns the file extension, including the dot, for the format.
func (f ImageFormat) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

func (f ImageFormat) imaging() (imaging.Format, error) {
	switch f {
	case FormatJPEG:
		return imaging.JPEG, nil
	case FormatPNG:
		return imaging.PNG, nil
	default:
		return 0, errors.Errorf("unsupported image format: %q", string(f))
	}
}

// FormatFromExtension maps a file extension such as ".jpg" to an ImageFormat.
func FormatFromExtension(ext string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", errors.Errorf("unsupported image extension: %q", ext)
	}
}
