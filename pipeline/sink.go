package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// timestampLayout sorts lexically in time order.
const timestampLayout = "20060102T150405.000000000Z"

// Sink persists annotated images.
type Sink interface {
	// Save stores img and returns where it went.
	Save(ctx context.Context, img image.Image) (string, error)
}

// FileSink writes each image to a fresh file under Dir named
// <UTC timestamp>_<uuid><ext>, so concurrent saves never collide.
type FileSink struct {
	Dir    string
	Format images.ImageFormat

	now   func() time.Time
	newID func() string
}

// NewFileSink creates a sink writing to dir in format.
func NewFileSink(dir string, format images.ImageFormat) *FileSink {
	return &FileSink{
		Dir:    dir,
		Format: format,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Name returns the next output file name.
func (s *FileSink) Name() string {
	return fmt.Sprintf("%s_%s%s", s.now().UTC().Format(timestampLayout), s.newID(), s.Format.Extension())
}

// Save implements Sink.
func (s *FileSink) Save(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output dir %s", s.Dir)
	}

	path := filepath.Join(s.Dir, s.Name())
	if err := images.Save(img, path); err != nil {
		return "", err
	}
	return path, nil
}

// MemorySink keeps encoded images in memory.
type MemorySink struct {
	Format images.ImageFormat

	mu     sync.Mutex
	images []images.Image
}

// Save implements Sink. The returned location is the image's position.
func (s *MemorySink) Save(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format := s.Format
	if format == "" {
		format = images.FormatPNG
	}

	var buf bytes.Buffer
	if err := images.Encode(&buf, img, format); err != nil {
		return "", err
	}
	b := img.Bounds()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, images.Image{
		Format: format,
		Data:   buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	})
	return fmt.Sprintf("memory:%d", len(s.images)-1), nil
}

// Images returns a copy of everything saved so far.
func (s *MemorySink) Images() []images.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]images.Image(nil), s.images...)
}
