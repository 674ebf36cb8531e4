// Package postprocess - Postprocessing utilities for detection models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/images"
)

// Detection represents a single decoded detection.
type Detection struct {
	// The bounding box of the detection in absolute pixel coordinates.
	Box images.Box
	// The predicted class index of the detection.
	Class int
	// The confidence score of the detection (the winning class score).
	Score float32
}

func (d Detection) String() string {
	return fmt.Sprintf("class=%d score=%.4f box=%s", d.Class, d.Score, d.Box)
}

// DetectionSet is an ordered sequence of detections. Order is the tensor scan
// order and is significant for tie-breaking during suppression.
type DetectionSet []Detection

// RetainedIndices are indices into a DetectionSet that survived suppression,
// in ascending order.
type RetainedIndices []int

// Select returns the detections referenced by idx, in idx order.
//
// Arguments:
//   - idx: Indices into the set. Out-of-range indices are skipped.
//
// Returns:
//   - A new DetectionSet; the receiver is not modified.
func (s DetectionSet) Select(idx RetainedIndices) DetectionSet {
	out := make(DetectionSet, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(s) {
			out = append(out, s[i])
		}
	}
	return out
}

// Contains reports whether i is one of the retained indices.
func (r RetainedIndices) Contains(i int) bool {
	for _, v := range r {
		if v == i {
			return true
		}
	}
	return false
}
