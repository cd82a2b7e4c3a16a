package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestDefaultsAreValidWithModel(t *testing.T) {
	cfg := Defaults()
	if cfg.Addr() != "127.0.0.1:8000" {
		t.Fatalf("addr=%s", cfg.Addr())
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("yolo backend without model_path should not validate")
	}
	cfg.ModelPath = "yolov8n.onnx"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 0
	cfg.Backend = "remote"
	cfg.ConfThreshold = 2
	cfg.InputSize = 100
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	if n := len(multierr.Errors(err)); n != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", n, err)
	}
	if !strings.Contains(err.Error(), "remote_url") {
		t.Fatalf("missing remote_url complaint: %v", err)
	}
}

func TestValidateRejectsZeroThresholds(t *testing.T) {
	cfg := Defaults()
	cfg.ModelPath = "yolov8n.onnx"
	cfg.ConfThreshold = 0
	cfg.IoUThreshold = 0
	err := cfg.Validate()
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", n, err)
	}
	cfg.ConfThreshold, cfg.IoUThreshold = 1, 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("1 is a valid threshold: %v", err)
	}
}

func TestValidateMaxImagePixels(t *testing.T) {
	cfg := Defaults()
	cfg.ModelPath = "yolov8n.onnx"
	if cfg.MaxImagePixels != 50_000_000 {
		t.Fatalf("default max_image_pixels = %d", cfg.MaxImagePixels)
	}
	cfg.MaxImagePixels = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_image_pixels") {
		t.Fatalf("expected max_image_pixels complaint, got %v", err)
	}
}

func TestMergeOverlaysNonZero(t *testing.T) {
	base := Defaults()
	got := Merge(base, Config{Port: 1234, CORSEnabled: true, CORSOrigins: []string{"*"}, InferTimeout: Duration(time.Second)})
	if got.Port != 1234 || !got.CORSEnabled || got.CORSOrigins[0] != "*" || got.InferTimeout.Std() != time.Second {
		t.Fatalf("merge: %+v", got)
	}
	if got.Host != base.Host || got.ConfThreshold != base.ConfThreshold {
		t.Fatalf("zero fields must not override: %+v", got)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MODEL_PATH":               "/models/best.onnx",
		"APP_PORT":                 "8000",
		"PORT":                     "8080",
		"LOG_LEVEL":                "WARNING",
		"DETECTD_CORS_ORIGINS":     " https://a , ,https://b ",
		"DETECTD_INFER_TIMEOUT":    "2s",
		"AZURE_WEBAPP_NAME":        "detect-app",
		"DETECTD_CONF_THRESHOLD":   "0.5",
		"DETECTD_MAX_UPLOAD_BYTES": "1024",
		"DETECTD_MAX_IMAGE_PIXELS": "4000000",
	}
	cfg := Defaults()
	if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.ModelPath != "/models/best.onnx" || cfg.Port != 8080 || cfg.LogLevel != "WARNING" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.InferTimeout.Std() != 2*time.Second || cfg.AzureWebAppName != "detect-app" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if cfg.ConfThreshold != 0.5 || cfg.MaxUploadBytes != 1024 || cfg.MaxImagePixels != 4_000_000 {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	env := map[string]string{"DETECTD_PORT": "eighty", "DETECTD_SESSIONS": "x", "DETECTD_CORS_ENABLED": "maybe"}
	cfg := Defaults()
	err := ApplyEnv(&cfg, func(k string) string { return env[k] })
	if n := len(multierr.Errors(err)); n != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", n, err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "test.env")
	if err := os.WriteFile(p, []byte("DETECTD_DOTENV_NEW=from-file\nDETECTD_DOTENV_KEEP=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DETECTD_DOTENV_KEEP", "from-env")
	t.Setenv("DETECTD_DOTENV_NEW", "")
	os.Unsetenv("DETECTD_DOTENV_NEW")
	if err := LoadDotEnv(p, filepath.Join(d, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("DETECTD_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("new=%q", got)
	}
	if got := os.Getenv("DETECTD_DOTENV_KEEP"); got != "from-env" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestParseDuration(t *testing.T) {
	for in, want := range map[string]time.Duration{"": 0, "3": 3 * time.Second, "1.5": 1500 * time.Millisecond, "90s": 90 * time.Second} {
		got, err := ParseDuration(in)
		if err != nil || got.Std() != want {
			t.Fatalf("%q -> %v, %v", in, got, err)
		}
	}
	if _, err := ParseDuration("later"); err == nil {
		t.Fatal("expected error")
	}
}
