// Package metrics - prometheus collectors for annotation runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "detect"

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ImagesProcessed    prometheus.Counter
	ImagesFailed       prometheus.Counter
	DetectionsDecoded  prometheus.Counter
	DetectionsRetained prometheus.Counter
	ProcessingSeconds  prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_processed_total",
			Help:      "Images annotated and saved.",
		}),
		ImagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_failed_total",
			Help:      "Images that failed at any stage.",
		}),
		DetectionsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_decoded_total",
			Help:      "Candidate boxes above the decode confidence threshold.",
		}),
		DetectionsRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_retained_total",
			Help:      "Boxes kept by non-maximum suppression.",
		}),
		ProcessingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_processing_seconds",
			Help:      "Wall time to process one image.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.ImagesProcessed,
		m.ImagesFailed,
		m.DetectionsDecoded,
		m.DetectionsRetained,
		m.ProcessingSeconds,
	)
	return m
}

// ObserveImage records one successful image.
func (m *Metrics) ObserveImage(decoded, retained int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ImagesProcessed.Inc()
	m.DetectionsDecoded.Add(float64(decoded))
	m.DetectionsRetained.Add(float64(retained))
	m.ProcessingSeconds.Observe(elapsed.Seconds())
}

// ObserveFailure records one failed image.
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.ImagesFailed.Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile writes the current values for the node exporter textfile
// collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
