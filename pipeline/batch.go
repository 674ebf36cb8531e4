package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-detect/util"
)

// Failure records one image that could not be annotated.
type Failure struct {
	Path string
	Err  error
}

// Summary describes a finished batch.
type Summary struct {
	Discovered int
	Processed  int
	Failed     int
	Decoded    int
	Retained   int
	Outputs    []string
	Failures   []Failure
	Elapsed    time.Duration
}

// Runner annotates every matching image below the configured input directory.
type Runner struct {
	p   *Pipeline
	cfg Config
}

// NewRunner creates a runner. Logging and metrics come from the pipeline.
func NewRunner(p *Pipeline, cfg Config) *Runner {
	return &Runner{p: p, cfg: cfg}
}

// Run processes the batch. Images run on up to Batch.Workers goroutines and
// each keeps its own detections. With ContinueOnError a failed image is
// logged and counted; without it the first failure cancels the rest and is
// returned.
//
// Arguments:
//   - ctx: Cancels the batch.
//
// Returns:
//   - Summary: Counts, outputs and failures, sorted by input path.
//   - error: A discovery error, the first image error when not continuing on
//     error, or the context error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	log := r.p.log

	paths, err := util.DiscoverImageFiles(r.cfg.Batch.InputDir, r.cfg.Batch.Extension)
	if err != nil {
		return Summary{}, err
	}
	log.Info("batch started",
		zap.String("input_dir", r.cfg.Batch.InputDir),
		zap.Int("images", len(paths)),
		zap.Int("workers", r.cfg.workers()),
	)

	var (
		mu      sync.Mutex
		sum     = Summary{Discovered: len(paths)}
		outputs = make(map[string]string, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers())

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up only after another image aborted the batch.
			if gctx.Err() != nil {
				return nil
			}
			res, err := r.p.ProcessFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				sum.Failures = append(sum.Failures, Failure{Path: path, Err: err})
				log.Error("image failed", zap.String("path", path), zap.Error(err))
				if r.cfg.Batch.ContinueOnError && ctx.Err() == nil {
					return nil
				}
				return err
			}
			sum.Processed++
			sum.Decoded += len(res.Detections)
			sum.Retained += len(res.Kept)
			outputs[path] = res.Output
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for _, path := range paths {
		if out, ok := outputs[path]; ok {
			sum.Outputs = append(sum.Outputs, out)
		}
	}
	sort.Slice(sum.Failures, func(i, j int) bool { return sum.Failures[i].Path < sum.Failures[j].Path })
	sum.Elapsed = time.Since(start)

	if r.cfg.MetricsTextfile != "" && r.p.metrics != nil {
		if werr := r.p.metrics.WriteTextfile(r.cfg.MetricsTextfile); werr != nil {
			log.Warn("metrics textfile not written", zap.Error(werr))
		}
	}

	log.Info("batch finished",
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
		zap.Int("retained", sum.Retained),
		zap.Duration("elapsed", sum.Elapsed),
	)
	if err != nil {
		return sum, errors.Wrap(err, "batch aborted")
	}
	return sum, nil
}
