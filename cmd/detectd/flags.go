package main

import (
	"flag"
	"fmt"
	"io"

	"detectd/internal/config"
)

// cliFlags holds the command line. Only flags the user actually set override
// the resolved configuration.
type cliFlags struct {
	fs         *flag.FlagSet
	configPath string
	vals       config.Config
	origins    string
	timeout    string
	remoteTO   string
}

func newFlags(out io.Writer) *cliFlags {
	f := &cliFlags{fs: flag.NewFlagSet("detectd", flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(out)
	d := config.Defaults()
	fs.StringVar(&f.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	fs.StringVar(&f.vals.Host, "host", d.Host, "HTTP listen host")
	fs.IntVar(&f.vals.Port, "port", d.Port, "HTTP listen port")
	fs.StringVar(&f.vals.Backend, "backend", d.Backend, "Detector backend: yolo, remote or static")
	fs.StringVar(&f.vals.ModelPath, "model-path", "", "ONNX weights file, or a directory to scan for *.onnx")
	fs.StringVar(&f.vals.LabelsPath, "labels", "", "Label file (text, dataset YAML or JSON); default COCO")
	fs.StringVar(&f.vals.RemoteURL, "remote-url", "", "Base URL of a remote detection service")
	fs.StringVar(&f.remoteTO, "remote-timeout", d.RemoteTimeout.String(), "Remote backend request timeout")
	fs.StringVar(&f.vals.StaticFixture, "static-fixture", "", "Fixture file for the static backend")
	fs.Float64Var(&f.vals.ConfThreshold, "conf", d.ConfThreshold, "Confidence threshold")
	fs.Float64Var(&f.vals.IoUThreshold, "iou", d.IoUThreshold, "NMS IoU threshold")
	fs.IntVar(&f.vals.InputSize, "input-size", d.InputSize, "Model input size (multiple of 32)")
	fs.IntVar(&f.vals.Sessions, "sessions", d.Sessions, "ONNX Runtime sessions in the pool")
	fs.StringVar(&f.vals.OnnxRuntimeLib, "onnxruntime-lib", "", "Path to the ONNX Runtime shared library")
	fs.IntVar(&f.vals.MaxConcurrentInference, "max-concurrent", 0, "Max concurrent inferences (0=unlimited)")
	fs.Int64Var(&f.vals.MaxUploadBytes, "max-upload-bytes", d.MaxUploadBytes, "Max request body size in bytes")
	fs.Int64Var(&f.vals.MaxImagePixels, "max-image-pixels", d.MaxImagePixels, "Max decoded image size in pixels (width*height)")
	fs.StringVar(&f.timeout, "infer-timeout", "0", "Per-request inference timeout (0=none)")
	fs.StringVar(&f.vals.LogLevel, "log-level", d.LogLevel, "Log level: debug, info, warn, error, off")
	fs.StringVar(&f.vals.LogFormat, "log-format", d.LogFormat, "Log format: json or console")
	fs.BoolVar(&f.vals.CORSEnabled, "cors", false, "Enable CORS")
	fs.StringVar(&f.origins, "cors-origins", "", "Comma-separated CORS allowed origins")
	return f
}

func (f *cliFlags) parse(args []string) error { return f.fs.Parse(args) }

// apply overlays the explicitly set flags onto cfg.
func (f *cliFlags) apply(cfg *config.Config) error {
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "host":
			cfg.Host = f.vals.Host
		case "port":
			cfg.Port = f.vals.Port
		case "backend":
			cfg.Backend = f.vals.Backend
		case "model-path":
			cfg.ModelPath = f.vals.ModelPath
		case "labels":
			cfg.LabelsPath = f.vals.LabelsPath
		case "remote-url":
			cfg.RemoteURL = f.vals.RemoteURL
		case "remote-timeout":
			cfg.RemoteTimeout, err = config.ParseDuration(f.remoteTO)
		case "static-fixture":
			cfg.StaticFixture = f.vals.StaticFixture
		case "conf":
			cfg.ConfThreshold = f.vals.ConfThreshold
		case "iou":
			cfg.IoUThreshold = f.vals.IoUThreshold
		case "input-size":
			cfg.InputSize = f.vals.InputSize
		case "sessions":
			cfg.Sessions = f.vals.Sessions
		case "onnxruntime-lib":
			cfg.OnnxRuntimeLib = f.vals.OnnxRuntimeLib
		case "max-concurrent":
			cfg.MaxConcurrentInference = f.vals.MaxConcurrentInference
		case "max-upload-bytes":
			cfg.MaxUploadBytes = f.vals.MaxUploadBytes
		case "max-image-pixels":
			cfg.MaxImagePixels = f.vals.MaxImagePixels
		case "infer-timeout":
			cfg.InferTimeout, err = config.ParseDuration(f.timeout)
		case "log-level":
			cfg.LogLevel = f.vals.LogLevel
		case "log-format":
			cfg.LogFormat = f.vals.LogFormat
		case "cors":
			cfg.CORSEnabled = f.vals.CORSEnabled
		case "cors-origins":
			cfg.CORSOrigins = config.SplitCSV(f.origins)
		}
		if err != nil {
			err = fmt.Errorf("flag -%s: %w", fl.Name, err)
		}
	})
	return err
}
