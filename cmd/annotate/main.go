package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/logger"
	"github.com/nvr-ai/go-detect/metrics"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/pipeline"
)

// options are the command line settings layered over the config file.
type options struct {
	configFile  string
	inputDir    string
	outputDir   string
	workers     int
	dev         bool
	libraryPath string
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	opts := options{libraryPath: os.Getenv("ONNXRUNTIME_LIB")}
	fs.StringVar(&opts.configFile, "config", os.Getenv("DETECT_CONFIG"), "Path to the YAML configuration file")
	fs.StringVar(&opts.inputDir, "input", "", "Override batch.input_dir")
	fs.StringVar(&opts.outputDir, "output", "", "Override batch.output_dir")
	fs.IntVar(&opts.workers, "workers", -1, "Override batch.workers (0 = one per CPU)")
	fs.BoolVar(&opts.dev, "dev", os.Getenv("DETECT_ENV") == "development", "Human readable debug logging")
	return opts, fs.Parse(args)
}

func main() {
	// A missing .env is fine; the flags and config file still apply.
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := initLogger(opts.dev); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout)
	stop()
	os.Exit(code)
}

// run executes one batch and returns the process exit code. Every resource
// it opens is released before it returns.
func run(ctx context.Context, opts options, out io.Writer) int {
	defer logger.Sync()
	log := logger.Log()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", zap.Error(err))
		return 1
	}

	labels, err := models.LoadClassLabels(cfg.Model.Labels)
	if err != nil {
		log.Error("load class labels", zap.Error(err))
		return 1
	}

	net, err := cfg.OpenNetwork()
	if err != nil {
		log.Error("load network", zap.Error(err))
		return 1
	}
	defer func() {
		if err := net.Close(); err != nil {
			log.Warn("close network", zap.Error(err))
		}
	}()

	p, err := pipeline.New(cfg, net, labels,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics.New()),
	)
	if err != nil {
		log.Error("build pipeline", zap.Error(err))
		return 1
	}

	sum, err := pipeline.NewRunner(p, cfg).Run(ctx)
	if err != nil {
		log.Error("batch failed", zap.Error(err))
	}
	fmt.Fprintf(out, "processed=%d failed=%d retained=%d elapsed=%s\n",
		sum.Processed, sum.Failed, sum.Retained, sum.Elapsed)
	if err != nil || sum.Failed > 0 {
		return 1
	}
	return 0
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts options) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if opts.configFile != "" {
		c, err := pipeline.LoadConfig(opts.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if opts.inputDir != "" {
		cfg.Batch.InputDir = opts.inputDir
	}
	if opts.outputDir != "" {
		cfg.Batch.OutputDir = opts.outputDir
	}
	if opts.workers >= 0 {
		cfg.Batch.Workers = opts.workers
	}
	if cfg.Model.LibraryPath == "" {
		cfg.Model.LibraryPath = opts.libraryPath
	}
	return cfg, nil
}

func initLogger(dev bool) error {
	if dev {
		return logger.InitDevelopment()
	}
	return logger.InitProduction()
}
