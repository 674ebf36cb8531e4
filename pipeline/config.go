// Package pipeline - end-to-end annotation of images: decode, scale, infer,
// decode boxes, suppress, draw and persist.
package pipeline

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolov3"
	"github.com/nvr-ai/go-detect/render"
)

// DefaultScaleFactor shrinks each input image in both axes before inference.
const DefaultScaleFactor = 0.9

// ModelConfig locates the network and its class labels.
type ModelConfig struct {
	// Backend selects the Network implementation.
	Backend inference.Backend `yaml:"backend"`
	// Weights is the Darknet .weights file, or the .onnx file for the onnx backend.
	Weights string `yaml:"weights"`
	// Config is the Darknet .cfg file. Unused by the onnx backend.
	Config string `yaml:"config"`
	// Labels is the class label file, one name per line.
	Labels string `yaml:"labels"`
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string `yaml:"library_path"`
	// Provider selects the onnxruntime execution provider.
	Provider string `yaml:"provider"`
	// InputName and OutputName are the onnx graph node names.
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	// OutputRows and OutputCols give the onnx output shape [1, rows, cols].
	OutputRows int `yaml:"output_rows"`
	OutputCols int `yaml:"output_cols"`
}

// BatchConfig controls directory traversal and output.
type BatchConfig struct {
	// InputDir is walked recursively for images.
	InputDir string `yaml:"input_dir"`
	// Extension filters input files, case-sensitively.
	Extension string `yaml:"extension"`
	// OutputDir receives annotated images.
	OutputDir string `yaml:"output_dir"`
	// OutputFormat is the encoding of annotated images.
	OutputFormat images.ImageFormat `yaml:"output_format"`
	// Workers is the number of images processed concurrently.
	Workers int `yaml:"workers"`
	// ContinueOnError keeps going after a failed image.
	ContinueOnError bool `yaml:"continue_on_error"`
}

// Config is the complete pipeline configuration.
type Config struct {
	Model ModelConfig `yaml:"model"`
	// ScaleFactor resizes each image in both axes before inference.
	ScaleFactor float64 `yaml:"scale_factor"`
	// Blob is the network input preprocessing.
	Blob inference.BlobConfig `yaml:"blob"`
	// Decoder filters and positions raw tensor rows.
	Decoder yolov3.DecoderConfig `yaml:"decoder"`
	// NMS configures non-maximum suppression.
	NMS postprocess.NMSConfig `yaml:"nms"`
	// Renderer selects the drawing backend.
	Renderer render.Backend `yaml:"renderer"`
	// PaletteSeed makes class colors reproducible; 0 picks random colors.
	PaletteSeed uint64      `yaml:"palette_seed"`
	Batch       BatchConfig `yaml:"batch"`
	// MetricsTextfile, when set, receives prometheus metrics after a batch.
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// DefaultConfig returns the YOLOv3 Darknet setup.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Backend: inference.BackendDarknet,
			Weights: "yolov3.weights",
			Config:  "yolov3.cfg",
			Labels:  "coco.names",
		},
		ScaleFactor: DefaultScaleFactor,
		Blob:        inference.DefaultBlobConfig(),
		Decoder: yolov3.DecoderConfig{
			ConfidenceThreshold: yolov3.DefaultConfidenceThreshold,
			ScoreOffset:         yolov3.DarknetScoreOffset,
		},
		NMS:      postprocess.DefaultNMSConfig(),
		Renderer: render.BackendNative,
		Batch: BatchConfig{
			InputDir:        "images",
			Extension:       ".jpg",
			OutputDir:       "outputimages",
			OutputFormat:    images.FormatJPEG,
			Workers:         1,
			ContinueOnError: true,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig, so omitted keys keep their
// defaults.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read or parsed.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate checks value ranges and that every model file exists. Missing
// files are reported as models.ErrResourceLoad.
func (c Config) Validate() error {
	if c.ScaleFactor <= 0 {
		return errors.Errorf("scale_factor must be positive, got %g", c.ScaleFactor)
	}
	if c.Blob.Size <= 0 {
		return errors.Errorf("blob.size must be positive, got %d", c.Blob.Size)
	}
	if c.Batch.Workers < 0 {
		return errors.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	switch c.Batch.OutputFormat {
	case images.FormatJPEG, images.FormatPNG:
	default:
		return errors.Errorf("unsupported output_format: %q", string(c.Batch.OutputFormat))
	}
	if _, err := render.NewRenderer(c.Renderer); err != nil {
		return err
	}

	files := []string{c.Model.Labels, c.Model.Weights}
	switch c.Model.Backend {
	case inference.BackendDarknet:
		files = append(files, c.Model.Config)
	case inference.BackendONNX:
	default:
		return errors.Errorf("unsupported backend: %q", string(c.Model.Backend))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(models.ErrResourceLoad, "%s: %v", f, err)
		}
	}
	return nil
}

// workers resolves the configured worker count; 0 means one per CPU.
func (c Config) workers() int {
	if c.Batch.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Batch.Workers
}

// OpenNetwork loads the configured backend.
func (c Config) OpenNetwork() (inference.Network, error) {
	switch c.Model.Backend {
	case inference.BackendDarknet:
		net, err := inference.NewDarknetNetwork(inference.DarknetConfig{
			Weights: c.Model.Weights,
			Config:  c.Model.Config,
			Blob:    c.Blob,
		})
		if err != nil {
			return nil, errors.Wrap(models.ErrResourceLoad, err.Error())
		}
		return net, nil
	case inference.BackendONNX:
		net, err := inference.NewORTNetwork(inference.ORTConfig{
			ModelPath:   c.Model.Weights,
			LibraryPath: c.Model.LibraryPath,
			InputName:   c.Model.InputName,
			OutputName:  c.Model.OutputName,
			OutputRows:  c.Model.OutputRows,
			OutputCols:  c.Model.OutputCols,
			Provider:    c.Model.Provider,
			Blob:        c.Blob,
		})
		if err != nil {
			return nil, errors.Wrap(models.ErrResourceLoad, err.Error())
		}
		return net, nil
	default:
		return nil, errors.Errorf("unsupported backend: %q", string(c.Model.Backend))
	}
}
