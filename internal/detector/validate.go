package detector

import (
	"fmt"
	"math"

	"detectd/pkg/types"
)

// Validate checks detections produced outside this process against the image
// size and the label vocabulary. An empty vocabulary skips the label check.
func Validate(dets []types.Detection, width, height int, labels []string) error {
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}
	w, h := float64(width), float64(height)
	for i, d := range dets {
		if len(known) > 0 {
			if _, ok := known[d.Label]; !ok {
				return fmt.Errorf("detection %d: unknown label %q", i, d.Label)
			}
		}
		if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("detection %d: confidence %v outside [0,1]", i, d.Confidence)
		}
		x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
		if !(x1 < x2) || !(y1 < y2) {
			return fmt.Errorf("detection %d: degenerate bbox %v", i, d.BBox)
		}
		if x1 < 0 || y1 < 0 || x2 > w || y2 > h {
			return fmt.Errorf("detection %d: bbox %v outside %dx%d image", i, d.BBox, width, height)
		}
	}
	return nil
}
