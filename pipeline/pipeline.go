package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/nvr-ai/go-detect/metrics"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolov3"
	"github.com/nvr-ai/go-detect/render"
	"github.com/nvr-ai/go-detect/util"
)

// Result describes one processed image.
type Result struct {
	// Width and Height are the dimensions of the scaled image boxes refer to.
	Width  int
	Height int
	// Detections are the decoded candidates in tensor scan order.
	Detections postprocess.DetectionSet
	// Kept indexes the detections that survived suppression.
	Kept postprocess.RetainedIndices
	// Image is the annotated image.
	Image image.Image
	// Output is where the sink stored Image.
	Output string
}

// Retained returns the drawn detections.
func (r Result) Retained() postprocess.DetectionSet {
	return r.Detections.Select(r.Kept)
}

// Pipeline annotates single images. It holds only read-only state after New,
// so ProcessImage may be called concurrently when the Network allows it.
type Pipeline struct {
	cfg       Config
	net       inference.Network
	decoder   *yolov3.Decoder
	palette   render.Palette
	annotator *render.Annotator
	renderer  render.Renderer
	sink      Sink
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(l) }
}

// WithMetrics records per-image metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRenderer overrides the configured renderer.
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithSink overrides the file sink.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithPalette overrides the generated class palette.
func WithPalette(palette render.Palette) Option {
	return func(p *Pipeline) { p.palette = palette }
}

// New assembles a pipeline around an already loaded network and class labels.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - net: The inference backend.
//   - labels: Class names indexed by class id.
//   - opts: Optional overrides.
//
// Returns:
//   - *Pipeline: The ready pipeline.
//   - error: An error if net is nil or the renderer is unknown.
func New(cfg Config, net inference.Network, labels []string, opts ...Option) (*Pipeline, error) {
	if net == nil {
		return nil, errors.New("network is required")
	}
	if cfg.ScaleFactor <= 0 {
		return nil, errors.Errorf("scale factor must be positive, got %g", cfg.ScaleFactor)
	}

	p := &Pipeline{
		cfg:     cfg,
		net:     net,
		decoder: yolov3.NewDecoder(cfg.Decoder),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.palette == nil {
		p.palette = render.NewPalette(len(labels), cfg.PaletteSeed)
	}
	p.annotator = render.NewAnnotator(labels, p.palette)
	if p.renderer == nil {
		r, err := render.NewRenderer(cfg.Renderer)
		if err != nil {
			return nil, err
		}
		p.renderer = r
	}
	if p.sink == nil {
		p.sink = NewFileSink(cfg.Batch.OutputDir, cfg.Batch.OutputFormat)
	}
	return p, nil
}

// ProcessImage decodes raw, scales it, runs the network, decodes and
// suppresses boxes, draws the survivors and persists the result. The first
// failing step aborts the image.
//
// Arguments:
//   - ctx: Cancels between steps.
//   - raw: The encoded input image.
//
// Returns:
//   - Result: The detections and the stored annotated image.
//   - error: The wrapped cause of the failing step.
func (p *Pipeline) ProcessImage(ctx context.Context, raw []byte) (res Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			p.metrics.ObserveFailure()
			return
		}
		p.metrics.ObserveImage(len(res.Detections), len(res.Kept), time.Since(start))
	}()

	img, err := images.Decode(raw)
	if err != nil {
		return Result{}, err
	}
	img = images.Scale(img, p.cfg.ScaleFactor, p.cfg.ScaleFactor)
	b := img.Bounds()

	t, err := p.net.Forward(ctx, img)
	if err != nil {
		return Result{}, errors.Wrap(err, "forward")
	}

	dets := p.decoder.Decode(t, b.Dx(), b.Dy())
	kept := postprocess.Suppress(dets, &p.cfg.NMS)

	out, err := p.renderer.Render(img, func(c render.Canvas) {
		p.annotator.Annotate(c, dets, kept)
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "render")
	}

	path, err := p.sink.Save(ctx, out)
	if err != nil {
		return Result{}, errors.Wrap(err, "save")
	}

	return Result{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Detections: dets,
		Kept:       kept,
		Image:      out,
		Output:     path,
	}, nil
}

// ProcessFile reads path and processes its contents.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Result, error) {
	f, err := util.LoadImageFile(path)
	if err != nil {
		p.metrics.ObserveFailure()
		return Result{}, err
	}

	res, err := p.ProcessImage(ctx, f.Data)
	if err != nil {
		return Result{}, errors.Wrapf(err, "process %s", path)
	}
	p.log.Debug("image annotated",
		zap.String("path", path),
		zap.Int("decoded", len(res.Detections)),
		zap.Int("retained", len(res.Kept)),
		zap.String("output", res.Output),
	)
	return res, nil
}
