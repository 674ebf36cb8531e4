package pipeline

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/metrics"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func batchConfig(t *testing.T, workers int, continueOnError bool) Config {
	t.Helper()
	cfg := testConfig()
	cfg.Batch.InputDir = t.TempDir()
	cfg.Batch.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Batch.Workers = workers
	cfg.Batch.ContinueOnError = continueOnError

	img := encodedImage(t, 40, 40, color.NRGBA{G: 80, A: 255})
	writeFile(t, cfg.Batch.InputDir, "a.jpg", img)
	writeFile(t, cfg.Batch.InputDir, "nested/c.jpg", img)
	writeFile(t, cfg.Batch.InputDir, "b.jpg", []byte("corrupt"))
	writeFile(t, cfg.Batch.InputDir, "skip.png", img)
	return cfg
}

func TestRunner_ContinueOnError(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cfg := batchConfig(t, workers, true)
		cfg.MetricsTextfile = filepath.Join(t.TempDir(), "detect.prom")

		net := &fakeNetwork{rows: [][]float32{{0.5, 0.5, 0.5, 0.5, 0.9}}}
		p, err := New(cfg, net, []string{"person"}, WithMetrics(metrics.New()))
		require.NoError(t, err)

		sum, err := NewRunner(p, cfg).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, sum.Discovered)
		assert.Equal(t, 2, sum.Processed)
		assert.Equal(t, 1, sum.Failed)
		assert.Equal(t, 2, sum.Retained)
		require.Len(t, sum.Failures, 1)
		assert.Equal(t, filepath.Join(cfg.Batch.InputDir, "b.jpg"), sum.Failures[0].Path)
		assert.True(t, errors.Is(sum.Failures[0].Err, images.ErrImageDecode))

		require.Len(t, sum.Outputs, 2)
		for _, out := range sum.Outputs {
			assert.FileExists(t, out)
			assert.Equal(t, cfg.Batch.OutputDir, filepath.Dir(out))
		}
		assert.NotEqual(t, sum.Outputs[0], sum.Outputs[1])
		assert.FileExists(t, cfg.MetricsTextfile)
	}
}

func TestRunner_StopOnError(t *testing.T) {
	cfg := batchConfig(t, 1, false)
	p, err := New(cfg, &fakeNetwork{}, nil)
	require.NoError(t, err)

	sum, err := NewRunner(p, cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, images.ErrImageDecode))
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Processed, "a.jpg sorts before b.jpg")
}

func TestRunner_EmptyDir(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.InputDir = t.TempDir()
	p, err := New(cfg, &fakeNetwork{}, nil, WithSink(&MemorySink{}))
	require.NoError(t, err)

	sum, err := NewRunner(p, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Discovered)
	assert.Empty(t, sum.Outputs)
}

func TestRunner_MissingDir(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.InputDir = filepath.Join(t.TempDir(), "missing")
	p, err := New(cfg, &fakeNetwork{}, nil, WithSink(&MemorySink{}))
	require.NoError(t, err)

	_, err = NewRunner(p, cfg).Run(context.Background())
	assert.Error(t, err)
}

func TestRunner_Canceled(t *testing.T) {
	cfg := batchConfig(t, 1, true)
	p, err := New(cfg, &fakeNetwork{}, nil, WithSink(&MemorySink{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewRunner(p, cfg).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, sum.Processed)
}
