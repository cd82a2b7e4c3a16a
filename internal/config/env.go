package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// envBinding maps environment variables onto one config field. Later names
// win, so DETECTD_* overrides the plain names used by container platforms.
type envBinding struct {
	names []string
	set   func(*Config, string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func int64Var(dst func(*Config) *int64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func duration(dst func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{[]string{"APP_HOST", "DETECTD_HOST"}, str(func(c *Config) *string { return &c.Host })},
	{[]string{"APP_PORT", "PORT", "DETECTD_PORT"}, integer(func(c *Config) *int { return &c.Port })},
	{[]string{"MODEL_PATH", "DETECTD_MODEL_PATH"}, str(func(c *Config) *string { return &c.ModelPath })},
	{[]string{"DETECTD_LABELS_PATH"}, str(func(c *Config) *string { return &c.LabelsPath })},
	{[]string{"DETECTD_BACKEND"}, str(func(c *Config) *string { return &c.Backend })},
	{[]string{"DETECTD_REMOTE_URL"}, str(func(c *Config) *string { return &c.RemoteURL })},
	{[]string{"DETECTD_REMOTE_TIMEOUT"}, duration(func(c *Config) *Duration { return &c.RemoteTimeout })},
	{[]string{"DETECTD_STATIC_FIXTURE"}, str(func(c *Config) *string { return &c.StaticFixture })},
	{[]string{"DETECTD_CONF_THRESHOLD"}, float(func(c *Config) *float64 { return &c.ConfThreshold })},
	{[]string{"DETECTD_IOU_THRESHOLD"}, float(func(c *Config) *float64 { return &c.IoUThreshold })},
	{[]string{"DETECTD_INPUT_SIZE"}, integer(func(c *Config) *int { return &c.InputSize })},
	{[]string{"DETECTD_SESSIONS"}, integer(func(c *Config) *int { return &c.Sessions })},
	{[]string{"ONNXRUNTIME_LIB", "DETECTD_ONNXRUNTIME_LIB"}, str(func(c *Config) *string { return &c.OnnxRuntimeLib })},
	{[]string{"DETECTD_MAX_CONCURRENT_INFERENCE"}, integer(func(c *Config) *int { return &c.MaxConcurrentInference })},
	{[]string{"DETECTD_MAX_UPLOAD_BYTES"}, int64Var(func(c *Config) *int64 { return &c.MaxUploadBytes })},
	{[]string{"DETECTD_MAX_IMAGE_PIXELS"}, int64Var(func(c *Config) *int64 { return &c.MaxImagePixels })},
	{[]string{"DETECTD_INFER_TIMEOUT"}, duration(func(c *Config) *Duration { return &c.InferTimeout })},
	{[]string{"LOG_LEVEL", "DETECTD_LOG_LEVEL"}, str(func(c *Config) *string { return &c.LogLevel })},
	{[]string{"DETECTD_LOG_FORMAT"}, str(func(c *Config) *string { return &c.LogFormat })},
	{[]string{"DETECTD_CORS_ENABLED"}, func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		c.CORSEnabled = b
		return nil
	}},
	{[]string{"DETECTD_CORS_ORIGINS"}, func(c *Config, v string) error { c.CORSOrigins = SplitCSV(v); return nil }},
	{[]string{"AZURE_CONTAINER_REGISTRY", "DETECTD_AZURE_CONTAINER_REGISTRY"}, str(func(c *Config) *string { return &c.AzureContainerRegistry })},
	{[]string{"AZURE_WEBAPP_NAME", "DETECTD_AZURE_WEBAPP_NAME"}, str(func(c *Config) *string { return &c.AzureWebAppName })},
	{[]string{"AZURE_RESOURCE_GROUP", "DETECTD_AZURE_RESOURCE_GROUP"}, str(func(c *Config) *string { return &c.AzureResourceGroup })},
	{[]string{"DETECTD_IMAGE_NAME"}, str(func(c *Config) *string { return &c.ImageName })},
}

// ApplyEnv overlays environment variables read through getenv onto cfg. All
// malformed values are reported together.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs error
	for _, b := range envBindings {
		for _, name := range b.names {
			v := getenv(name)
			if v == "" {
				continue
			}
			if err := b.set(cfg, v); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s=%q: %w", name, v, err))
			}
		}
	}
	return errs
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
