// Package registry locates model weights on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"detectd/internal/common/fsutil"
)

// WeightsExt is the file extension of exported detector weights.
const WeightsExt = ".onnx"

// preferred names, in order, when a directory holds several weight files.
// best.onnx and last.onnx are what an Ultralytics training run exports.
var preferred = []string{"best.onnx", "last.onnx"}

// Weights is a weights file found on disk.
type Weights struct {
	Name string
	Path string
	Size int64
}

// Scan lists the *.onnx files directly under dir, sorted by name.
func Scan(dir string) ([]Weights, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	paths, err := fsutil.ListExt(abs, WeightsExt)
	if err != nil {
		return nil, err
	}
	out := make([]Weights, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		out = append(out, Weights{Name: filepath.Base(p), Path: p, Size: fi.Size()})
	}
	return out, nil
}

// ResolveModel turns a configured model path into a weights file. A file is
// returned as is (made absolute); a directory is scanned and a preferred name
// wins, otherwise the first file by name.
func ResolveModel(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("model path is empty")
	}
	abs, err := fsutil.AbsPath(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("model path: %w", err)
	}
	if !fi.IsDir() {
		return abs, nil
	}
	found, err := Scan(abs)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no %s weights in %s", WeightsExt, abs)
	}
	for _, name := range preferred {
		for _, w := range found {
			if w.Name == name {
				return w.Path, nil
			}
		}
	}
	return found[0].Path, nil
}
