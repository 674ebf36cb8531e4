package yolov3

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

const (
	// DefaultConfidenceThreshold is the minimum class score a row must exceed.
	DefaultConfidenceThreshold float32 = 0.5
	// GeometryFields is the number of leading box values in a row.
	GeometryFields = 4
	// DarknetScoreOffset is where class scores start in Darknet YOLOv3 rows,
	// which carry an objectness value after the geometry.
	DarknetScoreOffset = 5
)

// DecoderConfig configures box decoding.
type DecoderConfig struct {
	// ConfidenceThreshold discards rows whose best class score is <= it.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// ScoreOffset is the column at which the class score vector starts.
	ScoreOffset int `json:"score_offset" yaml:"score_offset"`
}

// DefaultDecoderConfig returns a config for rows laid out as geometry
// immediately followed by class scores.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ScoreOffset:         GeometryFields,
	}
}

// Decoder turns raw network rows into pixel-space detections.
type Decoder struct {
	config DecoderConfig
}

// NewDecoder creates a decoder. A ScoreOffset below GeometryFields is raised
// to GeometryFields.
func NewDecoder(config DecoderConfig) *Decoder {
	if config.ScoreOffset < GeometryFields {
		config.ScoreOffset = GeometryFields
	}
	return &Decoder{config: config}
}

// Config returns the decoder configuration.
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

// Decode converts every qualifying row of every layer into a Detection.
//
// The winning class is the first index holding the maximum score. Rows whose
// winning score is not above the confidence threshold, or that are too short
// to hold a class score, are skipped. Geometry is scaled by the image size and
// truncated toward zero at each step, so the top-left corner is computed from
// the already truncated center and size.
//
// Arguments:
//   - t: The network output.
//   - width: The width of the image the network saw, in pixels.
//   - height: The height of the image the network saw, in pixels.
//
// Returns:
//   - Detections in scan order (layer order, then row order). Never nil.
func (d *Decoder) Decode(t Tensor, width, height int) postprocess.DetectionSet {
	out := make(postprocess.DetectionSet, 0)
	fw, fh := float32(width), float32(height)

	for _, layer := range t {
		data, cols := matrix(layer)
		if cols <= d.config.ScoreOffset {
			continue
		}

		for off := 0; off+cols <= len(data); off += cols {
			row := data[off : off+cols]
			classID, conf := argmax(row[d.config.ScoreOffset:])

			// NaN scores fail this comparison and are dropped too.
			if !(conf > d.config.ConfidenceThreshold) {
				continue
			}

			centerX := truncate(row[0] * fw)
			centerY := truncate(row[1] * fh)
			w := truncate(row[2] * fw)
			h := truncate(row[3] * fh)

			out = append(out, postprocess.Detection{
				Box: images.Box{
					X: truncate(float32(centerX) - float32(w)/2),
					Y: truncate(float32(centerY) - float32(h)/2),
					W: w,
					H: h,
				},
				Class: classID,
				Score: conf,
			})
		}
	}

	return out
}

// argmax returns the index and value of the first maximum in scores.
func argmax(scores []float32) (int, float32) {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}

func truncate(v float32) int {
	return int(math32.Trunc(v))
}
