package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
)

func TestFileSink_Name(t *testing.T) {
	s := NewFileSink("out", images.FormatJPEG)
	s.now = func() time.Time {
		return time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("CET", 3600))
	}
	s.newID = func() string { return "0f8b" }

	assert.Equal(t, "20240309T130507.123456789Z_0f8b.jpg", s.Name())

	s.Format = images.FormatPNG
	assert.Equal(t, "20240309T130507.123456789Z_0f8b.png", s.Name())
}

func TestFileSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s := NewFileSink(dir, images.FormatJPEG)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	first, err := s.Save(context.Background(), img)
	require.NoError(t, err)
	second, err := s.Save(context.Background(), img)
	require.NoError(t, err)

	assert.FileExists(t, first)
	assert.FileExists(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, ".jpg", filepath.Ext(first))
}

func TestFileSink_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSink(t.TempDir(), images.FormatJPEG).Save(ctx, image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemorySink(t *testing.T) {
	s := &MemorySink{}
	loc, err := s.Save(context.Background(), image.NewNRGBA(image.Rect(0, 0, 6, 4)))
	require.NoError(t, err)

	assert.Equal(t, "memory:0", loc)
	saved := s.Images()
	require.Len(t, saved, 1)
	assert.Equal(t, images.FormatPNG, saved[0].Format)
	assert.Equal(t, 6, saved[0].Width)
	assert.Equal(t, 4, saved[0].Height)

	decoded, err := images.Decode(saved[0].Data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), decoded.Bounds())
}
