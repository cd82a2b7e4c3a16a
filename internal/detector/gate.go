package detector

import (
	"context"

	"detectd/internal/imagecodec"
	"detectd/pkg/types"
)

// gated bounds the number of in-flight Infer calls on the wrapped Detector.
type gated struct {
	Detector
	slots chan struct{}
}

// Gate wraps d so that at most n Infer calls run at once; callers beyond that
// wait for a slot or for their context to end. n <= 0 returns d unchanged.
// Gate(d, 1) fully serializes a backend that is not safe for concurrent use.
func Gate(d Detector, n int) Detector {
	if n <= 0 {
		return d
	}
	return &gated{Detector: d, slots: make(chan struct{}, n)}
}

func (g *gated) Infer(ctx context.Context, img *imagecodec.Image) ([]types.Detection, error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.slots }()
	return g.Detector.Infer(ctx, img)
}
