// Package convert turns PixLab Annotate rectangle exports into YOLO label files.
package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"detectd/internal/common/fsutil"
	"detectd/internal/labels"
)

// Annotation is one PixLab rectangle.
type Annotation struct {
	RectMask struct {
		XMin   float64 `json:"xMin"`
		YMin   float64 `json:"yMin"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"rectMask"`
	Labels struct {
		LabelName string `json:"labelName"`
	} `json:"labels"`
}

// LabelMappingError reports an annotation label missing from the class mapping.
type LabelMappingError struct {
	File  string
	Label string
}

func (e *LabelMappingError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: label %q not found in class mapping", e.File, e.Label)
	}
	return fmt.Sprintf("label %q not found in class mapping", e.Label)
}

// Options controls a conversion. Width and Height are the annotated image's
// size in pixels; Classes maps label names to YOLO class ids.
type Options struct {
	Width   int
	Height  int
	Classes map[string]int
	Logger  zerolog.Logger
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", o.Width, o.Height)
	}
	if len(o.Classes) == 0 {
		return fmt.Errorf("empty class mapping")
	}
	return nil
}

// Write emits one YOLO line per annotation:
// "<class> <x_center> <y_center> <width> <height>" normalized by the image size.
// Nothing is written if any label is unmapped.
func Write(w io.Writer, anns []Annotation, o Options) error {
	if err := o.validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	iw, ih := float64(o.Width), float64(o.Height)
	for _, a := range anns {
		id, ok := o.Classes[a.Labels.LabelName]
		if !ok {
			return &LabelMappingError{Label: a.Labels.LabelName}
		}
		r := a.RectMask
		fmt.Fprintf(&buf, "%d %.6f %.6f %.6f %.6f\n", id,
			(r.XMin+r.Width/2)/iw, (r.YMin+r.Height/2)/ih, r.Width/iw, r.Height/ih)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadAnnotations parses a PixLab JSON export.
func ReadAnnotations(path string) ([]Annotation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var anns []Annotation
	if err := json.Unmarshal(b, &anns); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return anns, nil
}

// File converts one export to <outDir>/<basename>.txt and returns the output
// path. On failure no output file is left behind.
func File(in, outDir string, o Options) (string, error) {
	anns, err := ReadAnnotations(in)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Write(&buf, anns, o); err != nil {
		var lme *LabelMappingError
		if errors.As(err, &lme) {
			lme.File = in
		}
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(outDir, base+".txt")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(out)
		return "", err
	}
	o.Logger.Info().Str("input", in).Str("output", out).Int("boxes", len(anns)).Msg("YOLO labels saved")
	return out, nil
}

// Paths converts every input; directories contribute their *.json files. It
// stops at the first failure and returns the outputs written so far.
func Paths(inputs []string, outDir string, o Options) ([]string, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	var files []string
	for _, in := range inputs {
		p, err := fsutil.ExpandHome(in)
		if err != nil {
			return nil, err
		}
		if fsutil.IsDir(p) {
			found, err := fsutil.ListExt(p, ".json")
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, p)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no annotation files in %v", inputs)
	}
	outs := make([]string, 0, len(files))
	for _, f := range files {
		out, err := File(f, outDir, o)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// ParseClassPairs parses "name=id" pairs.
func ParseClassPairs(pairs []string) (map[string]int, error) {
	m := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, idStr, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("class %q: want name=id", p)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("class %q: invalid id", p)
		}
		m[name] = id
	}
	return m, nil
}

// ClassesFromFile builds the mapping from a label vocabulary file (dataset
// YAML, JSON or plain text); the id is the label's position.
func ClassesFromFile(path string) (map[string]int, error) {
	names, err := labels.Load(path)
	if err != nil {
		return nil, err
	}
	return labels.Index(names), nil
}
