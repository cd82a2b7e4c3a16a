// Package inference holds the single detector shared by all requests and
// exposes it to the HTTP layer.
package inference

import (
	"context"
	"errors"

	"detectd/internal/detector"
	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// ErrNoDetector is returned when the service was built without a detector.
var ErrNoDetector = errors.New("no detector bound")

// Service delegates to one Detector. It keeps no per-request state.
type Service struct {
	det detector.Detector
}

// New binds d. A nil d yields a service that is not ready.
func New(d detector.Detector) *Service {
	return &Service{det: d}
}

// RunInference runs the bound detector on img. Detector errors are returned unchanged.
func (s *Service) RunInference(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error) {
	if s.det == nil {
		return nil, detector.ErrDependencyUnavailable(ErrNoDetector.Error())
	}
	dets, err := s.det.Infer(ctx, img)
	if err != nil {
		return nil, err
	}
	if dets == nil {
		dets = []types.Detection{}
	}
	return dets, nil
}

// Ready reports whether a detector is bound.
func (s *Service) Ready() bool { return s.det != nil }

// Labels returns the detector's class vocabulary.
func (s *Service) Labels() []string {
	if s.det == nil {
		return []string{}
	}
	return append([]string(nil), s.det.Labels()...)
}

// Close releases the detector.
func (s *Service) Close() error {
	if s.det == nil {
		return nil
	}
	return s.det.Close()
}
