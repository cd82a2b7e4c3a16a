//go:build !gocv

package imagecodec

import (
	"bytes"
	"image"
)

// Backend names the decoder compiled into this binary.
const Backend = "go"

// decode runs the registered image codecs. Every source color model is
// normalized to RGB by FromImage.
func decode(data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if b := src.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, image.ErrFormat
	}
	return FromImage(src), nil
}
