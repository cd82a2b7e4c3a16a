package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

const backendYOLO = "yolo"

// padGray is the letterbox fill used by Ultralytics exports.
var padGray = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox records how an image was mapped into the square model input so
// that boxes can be mapped back.
type letterbox struct {
	scale      float64
	padX, padY int
	srcW, srcH int
}

// numAnchors is the prediction count of a stride 8/16/32 YOLOv8-style head.
func numAnchors(size int) int {
	n := 0
	for _, s := range []int{8, 16, 32} {
		g := size / s
		n += g * g
	}
	return n
}

// preprocess resizes img preserving aspect ratio, pads it to size x size and
// writes it into dst as CHW float32 scaled to [0,1]. dst must hold 3*size*size values.
func preprocess(img *imagecodec.Image, size int, dst []float32) (letterbox, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return letterbox{}, fmt.Errorf("empty image")
	}
	if len(dst) != 3*size*size {
		return letterbox{}, fmt.Errorf("input buffer holds %d values, want %d", len(dst), 3*size*size)
	}
	r := math.Min(float64(size)/float64(img.Width), float64(size)/float64(img.Height))
	nw := max(1, int(math.Round(float64(img.Width)*r)))
	nh := max(1, int(math.Round(float64(img.Height)*r)))
	lb := letterbox{scale: r, padX: (size - nw) / 2, padY: (size - nh) / 2, srcW: img.Width, srcH: img.Height}

	resized := imaging.Resize(img.ToNRGBA(), nw, nh, imaging.Linear)
	canvas := imaging.Paste(imaging.New(size, size, padGray), resized, image.Pt(lb.padX, lb.padY))

	plane := size * size
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+size*4]
		for x := 0; x < size; x++ {
			i := y*size + x
			dst[i] = float32(row[x*4]) / 255
			dst[plane+i] = float32(row[x*4+1]) / 255
			dst[2*plane+i] = float32(row[x*4+2]) / 255
		}
	}
	return lb, nil
}

type candidate struct {
	class int
	score float64
	box   [4]float64
}

// decodeOutput reads a [1, 4+nc, anchors] head: rows 0..3 are cx, cy, w, h in
// model input pixels, the remaining rows are per-class scores. Boxes are mapped
// back to source pixels and clamped; degenerate boxes are dropped.
func decodeOutput(out []float32, nc, anchors int, conf float64, lb letterbox) ([]candidate, error) {
	if nc <= 0 || anchors <= 0 {
		return nil, fmt.Errorf("invalid output geometry nc=%d anchors=%d", nc, anchors)
	}
	if want := (4 + nc) * anchors; len(out) != want {
		return nil, fmt.Errorf("unexpected output length: got %d, want %d", len(out), want)
	}
	w, h := float64(lb.srcW), float64(lb.srcH)
	cands := make([]candidate, 0, 64)
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < nc; c++ {
			if s := out[(4+c)*anchors+a]; best < 0 || s > bestScore {
				best, bestScore = c, s
			}
		}
		score := float64(bestScore)
		if math.IsNaN(score) || score < conf {
			continue
		}
		cx, cy := float64(out[a]), float64(out[anchors+a])
		bw, bh := float64(out[2*anchors+a]), float64(out[3*anchors+a])
		box := [4]float64{
			clamp((cx-bw/2-float64(lb.padX))/lb.scale, 0, w),
			clamp((cy-bh/2-float64(lb.padY))/lb.scale, 0, h),
			clamp((cx+bw/2-float64(lb.padX))/lb.scale, 0, w),
			clamp((cy+bh/2-float64(lb.padY))/lb.scale, 0, h),
		}
		if !(box[0] < box[2]) || !(box[1] < box[3]) {
			continue
		}
		cands = append(cands, candidate{class: best, score: math.Min(score, 1), box: box})
	}
	return cands, nil
}

// nms keeps the highest scoring boxes per class, dropping any box whose IoU with
// an already kept box of the same class exceeds thresh. The result is ordered by
// descending score and truncated to limit.
func nms(cands []candidate, thresh float64, limit int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	kept := make([]candidate, 0, min(len(cands), limit))
	for _, c := range cands {
		if len(kept) >= limit {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k.box, c.box) > thresh {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b [4]float64) float64 {
	ix := math.Min(a[2], b[2]) - math.Max(a[0], b[0])
	iy := math.Min(a[3], b[3]) - math.Max(a[1], b[1])
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// postprocess turns a raw head output into detections named by labels.
func postprocess(out []float32, labels []string, anchors int, opts Options, lb letterbox) ([]types.Detection, error) {
	cands, err := decodeOutput(out, len(labels), anchors, opts.ConfThreshold, lb)
	if err != nil {
		return nil, err
	}
	kept := nms(cands, opts.IoUThreshold, opts.MaxDetections)
	dets := make([]types.Detection, 0, len(kept))
	for _, c := range kept {
		dets = append(dets, types.Detection{Label: labels[c.class], Confidence: c.score, BBox: c.box})
	}
	return dets, nil
}
