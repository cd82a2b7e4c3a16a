// Package config holds the service configuration: defaults, config files,
// environment variables (including .env) and validation.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service and the detectctl tools.
// Zero values mean "unspecified" when merging layers.
type Config struct {
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`

	ModelPath     string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	LabelsPath    string   `json:"labels_path" yaml:"labels_path" toml:"labels_path"`
	Backend       string   `json:"backend" yaml:"backend" toml:"backend"`
	RemoteURL     string   `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	RemoteTimeout Duration `json:"remote_timeout" yaml:"remote_timeout" toml:"remote_timeout"`
	StaticFixture string   `json:"static_fixture" yaml:"static_fixture" toml:"static_fixture"`

	ConfThreshold  float64 `json:"conf_threshold" yaml:"conf_threshold" toml:"conf_threshold"`
	IoUThreshold   float64 `json:"iou_threshold" yaml:"iou_threshold" toml:"iou_threshold"`
	InputSize      int     `json:"input_size" yaml:"input_size" toml:"input_size"`
	Sessions       int     `json:"sessions" yaml:"sessions" toml:"sessions"`
	OnnxRuntimeLib string  `json:"onnxruntime_lib" yaml:"onnxruntime_lib" toml:"onnxruntime_lib"`

	MaxConcurrentInference int      `json:"max_concurrent_inference" yaml:"max_concurrent_inference" toml:"max_concurrent_inference"`
	MaxUploadBytes         int64    `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	MaxImagePixels         int64    `json:"max_image_pixels" yaml:"max_image_pixels" toml:"max_image_pixels"`
	InferTimeout           Duration `json:"infer_timeout" yaml:"infer_timeout" toml:"infer_timeout"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	AzureContainerRegistry string `json:"azure_container_registry" yaml:"azure_container_registry" toml:"azure_container_registry"`
	AzureWebAppName        string `json:"azure_webapp_name" yaml:"azure_webapp_name" toml:"azure_webapp_name"`
	AzureResourceGroup     string `json:"azure_resource_group" yaml:"azure_resource_group" toml:"azure_resource_group"`
	ImageName              string `json:"image_name" yaml:"image_name" toml:"image_name"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           8000,
		Backend:        "yolo",
		RemoteTimeout:  Duration(30 * time.Second),
		ConfThreshold:  0.25,
		IoUThreshold:   0.45,
		InputSize:      640,
		Sessions:       1,
		MaxUploadBytes: 32 << 20,
		MaxImagePixels: 50_000_000,
		LogLevel:       "info",
		LogFormat:      "json",
		ImageName:      "detectd:latest",
	}
}

// Addr is the listen address built from Host and Port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Merge overlays the non-zero fields of over onto base.
func Merge(base, over Config) Config {
	setS := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setI := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setF := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setD := func(dst *Duration, v Duration) {
		if v != 0 {
			*dst = v
		}
	}
	setS(&base.Host, over.Host)
	setI(&base.Port, over.Port)
	setS(&base.ModelPath, over.ModelPath)
	setS(&base.LabelsPath, over.LabelsPath)
	setS(&base.Backend, over.Backend)
	setS(&base.RemoteURL, over.RemoteURL)
	setD(&base.RemoteTimeout, over.RemoteTimeout)
	setS(&base.StaticFixture, over.StaticFixture)
	setF(&base.ConfThreshold, over.ConfThreshold)
	setF(&base.IoUThreshold, over.IoUThreshold)
	setI(&base.InputSize, over.InputSize)
	setI(&base.Sessions, over.Sessions)
	setS(&base.OnnxRuntimeLib, over.OnnxRuntimeLib)
	setI(&base.MaxConcurrentInference, over.MaxConcurrentInference)
	if over.MaxUploadBytes != 0 {
		base.MaxUploadBytes = over.MaxUploadBytes
	}
	if over.MaxImagePixels != 0 {
		base.MaxImagePixels = over.MaxImagePixels
	}
	setD(&base.InferTimeout, over.InferTimeout)
	setS(&base.LogLevel, over.LogLevel)
	setS(&base.LogFormat, over.LogFormat)
	if over.CORSEnabled {
		base.CORSEnabled = true
	}
	if len(over.CORSOrigins) > 0 {
		base.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	setS(&base.AzureContainerRegistry, over.AzureContainerRegistry)
	setS(&base.AzureWebAppName, over.AzureWebAppName)
	setS(&base.AzureResourceGroup, over.AzureResourceGroup)
	setS(&base.ImageName, over.ImageName)
	return base
}

var (
	backends   = map[string]bool{"yolo": true, "remote": true, "static": true}
	logFormats = map[string]bool{"json": true, "console": true}
)

// Validate reports every out-of-range or inconsistent setting at once.
func (c Config) Validate() error {
	var err error
	if c.Port < 1 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port %d out of range", c.Port))
	}
	if !backends[c.Backend] {
		err = multierr.Append(err, fmt.Errorf("unknown backend %q", c.Backend))
	}
	switch c.Backend {
	case "yolo":
		if c.ModelPath == "" {
			err = multierr.Append(err, fmt.Errorf("model_path is required for the yolo backend"))
		}
	case "remote":
		if c.RemoteURL == "" {
			err = multierr.Append(err, fmt.Errorf("remote_url is required for the remote backend"))
		}
	case "static":
		if c.StaticFixture == "" {
			err = multierr.Append(err, fmt.Errorf("static_fixture is required for the static backend"))
		}
	}
	// zero means "unset" to Merge and the detector defaults, so it is not a usable value
	if !(c.ConfThreshold > 0 && c.ConfThreshold <= 1) {
		err = multierr.Append(err, fmt.Errorf("conf_threshold %v outside (0,1]", c.ConfThreshold))
	}
	if !(c.IoUThreshold > 0 && c.IoUThreshold <= 1) {
		err = multierr.Append(err, fmt.Errorf("iou_threshold %v outside (0,1]", c.IoUThreshold))
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		err = multierr.Append(err, fmt.Errorf("input_size %d must be a positive multiple of 32", c.InputSize))
	}
	if c.Sessions < 1 {
		err = multierr.Append(err, fmt.Errorf("sessions must be >= 1"))
	}
	if c.MaxConcurrentInference < 0 {
		err = multierr.Append(err, fmt.Errorf("max_concurrent_inference must be >= 0"))
	}
	if c.MaxUploadBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_upload_bytes must be > 0"))
	}
	if c.MaxImagePixels <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_image_pixels must be > 0"))
	}
	if c.InferTimeout < 0 || c.RemoteTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("timeouts must not be negative"))
	}
	if !logFormats[strings.ToLower(c.LogFormat)] {
		err = multierr.Append(err, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return err
}

// Duration is a time.Duration that reads "30s"-style strings from every
// config format. Bare numbers are seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// ParseDuration accepts Go duration syntax or a number of seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(f * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(v), nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	return d.UnmarshalText(b)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}
