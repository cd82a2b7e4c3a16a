//go:build onnx

package detector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

func init() { Register(backendYOLO, newYOLO) }

var (
	ortOnce sync.Once
	ortErr  error
)

func initRuntime(lib string) error {
	ortOnce.Do(func() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortErr = ort.InitializeEnvironment()
	})
	if ortErr != nil {
		return ErrDependencyUnavailable("onnxruntime init: " + ortErr.Error())
	}
	return nil
}

type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// yoloDetector owns a fixed pool of ONNX sessions. Each session has its own
// tensors, so concurrent Infer calls never share buffers.
type yoloDetector struct {
	opts    Options
	labels  []string
	anchors int
	pool    chan *onnxSession
	all     []*onnxSession
	log     zerolog.Logger
}

func newYOLO(opts Options) (Detector, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("yolo backend: model path is empty")
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("yolo backend: %w", err)
	}
	if len(opts.Labels) == 0 {
		return nil, fmt.Errorf("yolo backend: empty label set")
	}
	if err := initRuntime(opts.OnnxRuntimeLib); err != nil {
		return nil, err
	}
	d := &yoloDetector{
		opts:    opts,
		labels:  append([]string(nil), opts.Labels...),
		anchors: numAnchors(opts.InputSize),
		pool:    make(chan *onnxSession, opts.Sessions),
		log:     opts.Logger.With().Str("backend", backendYOLO).Logger(),
	}
	threads := max(1, runtime.NumCPU()/opts.Sessions)
	for i := 0; i < opts.Sessions; i++ {
		s, err := d.newSession(threads)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.all = append(d.all, s)
		d.pool <- s
	}
	d.log.Info().Str("model", opts.ModelPath).Int("sessions", opts.Sessions).Int("classes", len(d.labels)).Msg("yolo detector ready")
	return d, nil
}

func (d *yoloDetector) newSession(threads int) (*onnxSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	_ = options.SetIntraOpNumThreads(threads)
	_ = options.SetInterOpNumThreads(1)

	size := int64(d.opts.InputSize)
	s := &onnxSession{}
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(d.labels)), int64(d.anchors)))
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	s.session, err = ort.NewAdvancedSession(d.opts.ModelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{s.input}, []ort.ArbitraryTensor{s.output},
		options)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (d *yoloDetector) Infer(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error) {
	var s *onnxSession
	select {
	case s = <-d.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { d.pool <- s }()

	lb, err := preprocess(img, d.opts.InputSize, s.input.GetData())
	if err != nil {
		return nil, inferenceError(backendYOLO, err)
	}
	if err := s.session.Run(); err != nil {
		return nil, inferenceError(backendYOLO, err)
	}
	dets, err := postprocess(s.output.GetData(), d.labels, d.anchors, d.opts, lb)
	if err != nil {
		return nil, inferenceError(backendYOLO, err)
	}
	return dets, nil
}

func (d *yoloDetector) Labels() []string { return d.labels }

func (d *yoloDetector) Close() error {
	for _, s := range d.all {
		s.destroy()
	}
	d.all = nil
	return nil
}
