// Package yolov3 - decode raw YOLOv3 detection tensors.
package yolov3

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Tensor is the raw output of one forward pass: one layer per network output,
// each holding per-anchor rows of [cx, cy, w, h, ..., class scores]. A nil
// layer has no rows.
type Tensor []*tensor.Dense

// NewLayer wraps row-major float32 output of shape rows x cols in a dense
// tensor. The data slice is used as backing storage, not copied.
//
// Arguments:
//   - rows: The number of anchor rows.
//   - cols: The number of values per row.
//   - data: Row-major values, len(data) == rows*cols.
//
// Returns:
//   - *tensor.Dense: The layer, nil when rows is zero.
//   - error: If the data length does not match the shape.
func NewLayer(rows, cols int, data []float32) (*tensor.Dense, error) {
	if rows < 0 || cols <= 0 || len(data) != rows*cols {
		return nil, errors.Errorf("layer shape %dx%d does not match %d values", rows, cols, len(data))
	}
	if rows == 0 {
		return nil, nil
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data)), nil
}

// matrix returns the layer's values as a row-major matrix view.
func matrix(layer *tensor.Dense) ([]float32, int) {
	if layer == nil {
		return nil, 0
	}
	data, ok := layer.Data().([]float32)
	if !ok {
		return nil, 0
	}
	shape := layer.Shape()
	if len(shape) == 0 {
		return nil, 0
	}
	cols := shape[len(shape)-1]
	if cols <= 0 {
		return nil, 0
	}
	return data, cols
}
