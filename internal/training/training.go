// Package training launches YOLO fine-tuning runs through the Ultralytics CLI.
package training

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"detectd/internal/common/fsutil"
	"detectd/internal/execx"
	"detectd/internal/labels"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultEpochs  = 5
	DefaultImgSize = 640
	DefaultBinary  = "yolo"
)

// DatasetNotFoundError reports a missing dataset descriptor.
type DatasetNotFoundError struct{ Path string }

func (e *DatasetNotFoundError) Error() string {
	return "dataset config not found at " + e.Path
}

// IsDatasetNotFound reports whether err is (or wraps) a DatasetNotFoundError.
func IsDatasetNotFound(err error) bool {
	var de *DatasetNotFoundError
	return errors.As(err, &de)
}

// Options describes a training run.
type Options struct {
	Data    string // dataset descriptor (YAML with train/val/names)
	Model   string // starting weights, e.g. yolov8n.pt
	Epochs  int
	ImgSize int
	Device  string // "", "cpu", "0", "0,1"
	Project string // output root (Ultralytics default: runs/detect)
	Name    string // run name under Project
	Binary  string // CLI executable, default "yolo"
	Extra   []string
}

func (o Options) withDefaults() Options {
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	if o.ImgSize <= 0 {
		o.ImgSize = DefaultImgSize
	}
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	return o
}

// Command builds the CLI invocation for o.
func Command(o Options) execx.Cmd {
	o = o.withDefaults()
	args := []string{
		"detect", "train",
		"data=" + o.Data,
		"model=" + o.Model,
		"epochs=" + strconv.Itoa(o.Epochs),
		"imgsz=" + strconv.Itoa(o.ImgSize),
	}
	if o.Device != "" {
		args = append(args, "device="+o.Device)
	}
	if o.Project != "" {
		args = append(args, "project="+o.Project)
	}
	if o.Name != "" {
		args = append(args, "name="+o.Name)
	}
	args = append(args, o.Extra...)
	return execx.Cmd{Path: o.Binary, Args: args}
}

// Run checks the dataset descriptor and runs one training job to completion.
func Run(ctx context.Context, r execx.Runner, o Options, log zerolog.Logger) error {
	o = o.withDefaults()
	if o.Model == "" {
		return fmt.Errorf("starting weights are required")
	}
	data, err := fsutil.ExpandHome(o.Data)
	if err != nil {
		return err
	}
	if data == "" || !fsutil.PathExists(data) {
		return &DatasetNotFoundError{Path: o.Data}
	}
	o.Data = data
	names, err := labels.Load(data)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", data, err)
	}

	cmd := Command(o)
	log.Info().Str("model", o.Model).Str("data", data).Int("classes", len(names)).Int("epochs", o.Epochs).Int("imgsz", o.ImgSize).Msg("starting training")
	log.Debug().Str("cmd", cmd.String()).Msg("exec")
	if err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	log.Info().Msg("training completed; check the runs directory for results")
	return nil
}
