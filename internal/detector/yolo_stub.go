//go:build !onnx

package detector

func init() { Register(backendYOLO, newYOLO) }

func newYOLO(Options) (Detector, error) {
	return nil, ErrDependencyUnavailable("yolo backend requires ONNX Runtime: rebuild with -tags=onnx")
}
