package inference

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/models/yolov3"
)

// DarknetConfig locates a Darknet model and describes its input blob.
type DarknetConfig struct {
	// Weights is the path to the .weights file.
	Weights string
	// Config is the path to the .cfg file.
	Config string
	// Blob holds the input preprocessing parameters.
	Blob BlobConfig
}

// DarknetNetwork runs a Darknet YOLOv3 model through OpenCV DNN.
type DarknetNetwork struct {
	mu          sync.Mutex
	net         gocv.Net
	blob        BlobConfig
	outputNames []string
	closed      bool
}

// NewDarknetNetwork loads the model and resolves its unconnected output
// layers.
//
// Arguments:
//   - cfg: The model paths and blob parameters.
//
// Returns:
//   - *DarknetNetwork: The loaded network.
//   - error: An error if a file is missing or OpenCV cannot parse the model.
func NewDarknetNetwork(cfg DarknetConfig) (*DarknetNetwork, error) {
	for _, path := range []string{cfg.Weights, cfg.Config} {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "model file not found: %s", path)
		}
	}
	if cfg.Blob.Size <= 0 {
		cfg.Blob = DefaultBlobConfig()
	}

	net := gocv.ReadNet(cfg.Weights, cfg.Config)
	if net.Empty() {
		return nil, errors.Errorf("failed to load darknet model: %s", cfg.Weights)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names, err := unconnectedOutputNames(&net)
	if err != nil {
		net.Close()
		return nil, err
	}

	return &DarknetNetwork{net: net, blob: cfg.Blob, outputNames: names}, nil
}

// unconnectedOutputNames maps OpenCV's 1-based output layer ids to names.
func unconnectedOutputNames(net *gocv.Net) ([]string, error) {
	layers := net.GetLayerNames()
	ids := net.GetUnconnectedOutLayers()
	if len(ids) == 0 {
		return nil, errors.New("model has no output layers")
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 1 || id > len(layers) {
			return nil, errors.Errorf("output layer id %d out of range", id)
		}
		names = append(names, layers[id-1])
	}
	return names, nil
}

// OutputNames returns the forwarded layer names in output order.
func (d *DarknetNetwork) OutputNames() []string {
	return append([]string(nil), d.outputNames...)
}

// Forward implements Network.
func (d *DarknetNetwork) Forward(ctx context.Context, img image.Image) (yolov3.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image to mat")
	}
	defer mat.Close()

	// ImageToMatRGB yields BGR planes, the layout OpenCV expects before swapRB.
	blob := gocv.BlobFromImage(
		mat,
		float64(d.blob.Scale),
		image.Pt(d.blob.Size, d.blob.Size),
		gocv.NewScalar(0, 0, 0, 0),
		d.blob.SwapRB,
		false,
	)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(d.outputNames)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	t := make(yolov3.Tensor, 0, len(outs))
	for i, out := range outs {
		layer, err := matToLayer(out)
		if err != nil {
			return nil, errors.Wrapf(err, "output layer %s", d.outputNames[i])
		}
		t = append(t, layer)
	}
	return t, nil
}

// matToLayer copies a 2D float Mat out of native memory.
func matToLayer(m gocv.Mat) (*tensor.Dense, error) {
	rows, cols := m.Rows(), m.Cols()
	if rows == 0 || m.Empty() {
		return nil, nil
	}
	data, err := m.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	return yolov3.NewLayer(rows, cols, append([]float32(nil), data[:rows*cols]...))
}

// Close implements Network.
func (d *DarknetNetwork) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
