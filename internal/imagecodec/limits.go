package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync/atomic"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds width*height of an accepted image (50 MP).
const DefaultMaxPixels int64 = 50_000_000

// ErrTooManyPixels is wrapped when an image header declares more pixels than
// the configured limit.
var ErrTooManyPixels = errors.New("image dimensions exceed limit")

var maxPixels atomic.Int64

func init() { maxPixels.Store(DefaultMaxPixels) }

// SetMaxPixels sets the pixel limit; n <= 0 restores DefaultMaxPixels.
func SetMaxPixels(n int64) {
	if n <= 0 {
		n = DefaultMaxPixels
	}
	maxPixels.Store(n)
}

// MaxPixels returns the current pixel limit.
func MaxPixels() int64 { return maxPixels.Load() }

// checkDimensions reads only the image header and rejects images whose pixel
// count is over the limit, before any decoder sizes its buffers from it.
// Streams the header parser does not recognize are left to the decoder.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	limit := maxPixels.Load()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > limit {
		return fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, limit)
	}
	return nil
}
