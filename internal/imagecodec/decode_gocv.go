//go:build gocv

package imagecodec

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Backend names the decoder compiled into this binary.
const Backend = "opencv"

// decode uses OpenCV, which yields BGR; the buffer is converted to RGB before
// it leaves this function.
func decode(data []byte) (*Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("opencv could not recognize the image codec")
	}
	// formats without a Go header parser are only checked after decoding
	if n := int64(mat.Rows()) * int64(mat.Cols()); n > MaxPixels() {
		return nil, fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, mat.Cols(), mat.Rows(), MaxPixels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)
	if !rgb.IsContinuous() {
		return nil, errors.New("opencv returned a non-continuous matrix")
	}

	im := newImage(rgb.Cols(), rgb.Rows())
	copy(im.Pix, rgb.ToBytes())
	return im, nil
}
