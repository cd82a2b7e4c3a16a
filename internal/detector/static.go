package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

const backendStatic = "static"

func init() { Register(backendStatic, newStatic) }

// fixture is the on-disk form of a static detector. Either a bare list of
// detections or an object with optional labels.
type fixture struct {
	Labels     []string          `json:"labels" yaml:"labels"`
	Detections []types.Detection `json:"detections" yaml:"detections"`
}

// staticDetector returns the same detections for every image. Boxes that do
// not fit the image are clamped, and dropped if nothing is left.
type staticDetector struct {
	labels []string
	dets   []types.Detection
}

func newStatic(opts Options) (Detector, error) {
	if opts.FixturePath == "" {
		return nil, fmt.Errorf("static backend: fixture path is empty")
	}
	fx, err := loadFixture(opts.FixturePath)
	if err != nil {
		return nil, fmt.Errorf("static backend: %w", err)
	}
	labels := fx.Labels
	if len(labels) == 0 {
		labels = opts.Labels
	}
	if err := Validate(fx.Detections, math.MaxInt, math.MaxInt, labels); err != nil {
		return nil, fmt.Errorf("static backend: %s: %w", opts.FixturePath, err)
	}
	return &staticDetector{labels: append([]string(nil), labels...), dets: fx.Detections}, nil
}

func loadFixture(path string) (fixture, error) {
	var fx fixture
	b, err := os.ReadFile(path)
	if err != nil {
		return fx, err
	}
	trimmed := strings.TrimSpace(string(b))
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if strings.HasPrefix(trimmed, "[") {
			err = json.Unmarshal(b, &fx.Detections)
		} else {
			err = json.Unmarshal(b, &fx)
		}
	} else {
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "[") {
			err = yaml.Unmarshal(b, &fx.Detections)
		} else {
			err = yaml.Unmarshal(b, &fx)
		}
	}
	if err != nil {
		return fx, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx, nil
}

func (s *staticDetector) Infer(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := float64(img.Width), float64(img.Height)
	out := make([]types.Detection, 0, len(s.dets))
	for _, d := range s.dets {
		b := [4]float64{clamp(d.BBox[0], 0, w), clamp(d.BBox[1], 0, h), clamp(d.BBox[2], 0, w), clamp(d.BBox[3], 0, h)}
		if !(b[0] < b[2]) || !(b[1] < b[3]) {
			continue
		}
		d.BBox = b
		out = append(out, d)
	}
	return out, nil
}

func (s *staticDetector) Labels() []string { return s.labels }

func (s *staticDetector) Close() error { return nil }
