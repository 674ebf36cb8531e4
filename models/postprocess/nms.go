// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

const (
	// DefaultScoreThreshold drops detections whose score is not above it.
	DefaultScoreThreshold float32 = 0.5
	// DefaultIoUThreshold suppresses lower ranked boxes overlapping above it.
	DefaultIoUThreshold float32 = 0.4
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// ScoreThreshold discards detections with Score <= ScoreThreshold before ranking.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// IoUThreshold is the overlap above which a lower ranked box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// TopK keeps at most TopK detections. Zero keeps all.
	TopK int `json:"top_k" yaml:"top_k"`
	// ClassAware restricts suppression to boxes of the same class. Off by
	// default: boxes of different classes suppress each other.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the YOLOv3 thresholds: score 0.5, IoU 0.4.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		ScoreThreshold: DefaultScoreThreshold,
		IoUThreshold:   DefaultIoUThreshold,
	}
}

// Suppress performs greedy Non-Maximum Suppression over detections.
//
// Detections scoring at or below the score threshold are dropped, the rest are
// ranked by descending score with ties going to the earlier detection, and
// every surviving box suppresses all lower ranked boxes whose IoU with it
// exceeds the IoU threshold. A suppressed box never suppresses others.
//
// Arguments:
//   - detections: Detections in tensor scan order. Not modified.
//   - config: NMS configuration. Nil uses DefaultNMSConfig.
//
// Returns:
//   - Indices into detections of the survivors, ascending. Empty input yields
//     an empty, non-nil result.
func Suppress(detections DetectionSet, config *NMSConfig) RetainedIndices {
	if config == nil {
		c := DefaultNMSConfig()
		config = &c
	}

	ranked := make([]int, 0, len(detections))
	for i, d := range detections {
		if d.Score > config.ScoreThreshold {
			ranked = append(ranked, i)
		}
	}

	sort.Slice(ranked, func(a, b int) bool {
		da, db := detections[ranked[a]], detections[ranked[b]]
		if da.Score != db.Score {
			return da.Score > db.Score
		}
		return ranked[a] < ranked[b]
	})

	kept := make(RetainedIndices, 0, len(ranked))
	used := make([]bool, len(ranked))

	for i := 0; i < len(ranked); i++ {
		if used[i] {
			continue
		}

		anchor := detections[ranked[i]]
		kept = append(kept, ranked[i])
		if config.TopK > 0 && len(kept) >= config.TopK {
			break
		}

		for j := i + 1; j < len(ranked); j++ {
			if used[j] {
				continue
			}
			other := detections[ranked[j]]
			if config.ClassAware && anchor.Class != other.Class {
				continue
			}
			if images.BoxIoU(anchor.Box, other.Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	sort.Ints(kept)
	return kept
}
