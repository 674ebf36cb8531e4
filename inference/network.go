// Package inference - network backends that turn an image into raw YOLOv3
// detection tensors.
package inference

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/yolov3"
)

// ErrClosed is returned by Forward after Close.
var ErrClosed = errors.New("network closed")

// Network runs one forward pass of a detection model.
type Network interface {
	// Forward returns the raw output layers for img, in the network's output
	// order.
	Forward(ctx context.Context, img image.Image) (yolov3.Tensor, error)
	// Close releases native resources.
	Close() error
}

// Backend names a Network implementation.
type Backend string

const (
	// BackendDarknet loads Darknet cfg + weights through OpenCV DNN.
	BackendDarknet Backend = "darknet"
	// BackendONNX runs an exported ONNX model with onnxruntime.
	BackendONNX Backend = "onnx"
)
