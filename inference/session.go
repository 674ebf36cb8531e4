package inference

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-detect/models/yolov3"
)

// Execution providers an ORTNetwork can append to its session.
const (
	ProviderCPU      = "cpu"
	ProviderCUDA     = "cuda"
	ProviderCoreML   = "coreml"
	ProviderOpenVINO = "openvino"
)

// ORTConfig describes an ONNX export of YOLOv3 with a single output of
// shape [1, rows, cols].
type ORTConfig struct {
	// ModelPath is the path to the .onnx file.
	ModelPath string
	// LibraryPath overrides SharedLibPath's platform default.
	LibraryPath string
	// InputName and OutputName are the graph node names.
	InputName  string
	OutputName string
	// OutputRows is the number of anchor rows; OutputCols the values per row.
	OutputRows int
	OutputCols int
	// Provider selects the execution provider, "" for CPU.
	Provider string
	// Blob holds the input preprocessing parameters.
	Blob BlobConfig
}

// ORTNetwork runs an ONNX model with preallocated input and output tensors.
type ORTNetwork struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	blob    BlobConfig
	rows    int
	cols    int
}

// NewORTNetwork creates the session.
//
// Order of operations:
//  1. Library path check and one-time environment setup.
//  2. Tensor allocation for the fixed input and output shapes.
//  3. Session options and the execution provider.
//  4. Session creation binding the tensors.
//
// Arguments:
//   - cfg: The model location, shapes and provider.
//
// Returns:
//   - *ORTNetwork: The runnable network.
//   - error: An error if any step fails; partial resources are released.
func NewORTNetwork(cfg ORTConfig) (*ORTNetwork, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}
	if cfg.OutputRows <= 0 || cfg.OutputCols <= 0 {
		return nil, errors.Errorf("invalid output shape %dx%d", cfg.OutputRows, cfg.OutputCols)
	}
	if cfg.Blob.Size <= 0 {
		cfg.Blob = DefaultBlobConfig()
	}
	if cfg.InputName == "" {
		cfg.InputName = "images"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output0"
	}

	libPath, err := SharedLibPath(cfg.LibraryPath)
	if err != nil {
		return nil, err
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	size := int64(cfg.Blob.Size)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(cfg.OutputRows), int64(cfg.OutputCols)),
	)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := sessionOptions(cfg.Provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create onnxruntime session")
	}

	return &ORTNetwork{
		session: session,
		input:   input,
		output:  output,
		blob:    cfg.Blob,
		rows:    cfg.OutputRows,
		cols:    cfg.OutputCols,
	}, nil
}

// sessionOptions builds options with graph optimizations and the provider.
func sessionOptions(provider string) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}
	fail := func(err error, msg string) (*ort.SessionOptions, error) {
		options.Destroy()
		return nil, errors.Wrap(err, msg)
	}

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return fail(err, "set graph optimization level")
	}

	switch provider {
	case "", ProviderCPU:
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fail(err, "create CUDA options")
		}
		defer cuda.Destroy()
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fail(err, "enable CUDA")
		}
	case ProviderCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fail(err, "enable CoreML")
		}
	case ProviderOpenVINO:
		if err := options.AppendExecutionProviderOpenVINO(map[string]string{}); err != nil {
			return fail(err, "enable OpenVINO")
		}
	default:
		options.Destroy()
		return nil, errors.Errorf("unsupported execution provider: %q", provider)
	}
	return options, nil
}

// Forward implements Network. Calls are serialized because the session's
// tensors are shared.
func (n *ORTNetwork) Forward(ctx context.Context, img image.Image) (yolov3.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return nil, ErrClosed
	}

	if err := PrepareInput(img, n.blob, n.input.GetData()); err != nil {
		return nil, err
	}
	if err := n.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run onnxruntime session")
	}

	data := append([]float32(nil), n.output.GetData()...)
	layer, err := yolov3.NewLayer(n.rows, n.cols, data)
	if err != nil {
		return nil, err
	}
	return yolov3.Tensor{layer}, nil
}

// Close implements Network.
func (n *ORTNetwork) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	if n.session != nil {
		err = n.session.Destroy()
		n.session = nil
	}
	if n.input != nil {
		n.input.Destroy()
		n.input = nil
	}
	if n.output != nil {
		n.output.Destroy()
		n.output = nil
	}
	return errors.Wrap(err, "destroy onnxruntime session")
}
