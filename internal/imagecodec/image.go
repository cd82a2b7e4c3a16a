// Package imagecodec turns encoded image bytes or files into RGB pixel buffers.
package imagecodec

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
)

// Channels is the fixed channel count of a decoded Image.
const Channels = 3

// Image is an RGB, 8-bit per channel pixel buffer in row-major order.
// Pix[(y*Width+x)*3+c] holds channel c (0=R, 1=G, 2=B) of pixel (x, y).
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// newImage allocates a zeroed RGB buffer.
func newImage(w, h int) *Image {
	return &Image{Width: w, Height: h, Channels: Channels, Pix: make([]uint8, w*h*Channels)}
}

// At returns the RGB triple at (x, y).
func (im *Image) At(x, y int) (r, g, b uint8) {
	i := (y*im.Width + x) * Channels
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
}

// Bounds returns the image rectangle anchored at the origin.
func (im *Image) Bounds() image.Rectangle { return image.Rect(0, 0, im.Width, im.Height) }

// ToNRGBA copies the buffer into an opaque *image.NRGBA for libraries that
// operate on image.Image.
func (im *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(im.Bounds())
	for p, q := 0, 0; p < len(im.Pix); p, q = p+Channels, q+4 {
		out.Pix[q] = im.Pix[p]
		out.Pix[q+1] = im.Pix[p+1]
		out.Pix[q+2] = im.Pix[p+2]
		out.Pix[q+3] = 0xff
	}
	return out
}

// FromImage converts any image.Image to an RGB Image, dropping alpha.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	im := newImage(b.Dx(), b.Dy())
	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < im.Height; y++ {
			row := s.Pix[y*s.Stride:]
			for x := 0; x < im.Width; x++ {
				i := (y*im.Width + x) * Channels
				copy(im.Pix[i:i+3], row[x*4:x*4+3])
			}
		}
	case *image.RGBA:
		for y := 0; y < im.Height; y++ {
			row := s.Pix[y*s.Stride:]
			for x := 0; x < im.Width; x++ {
				i := (y*im.Width + x) * Channels
				a := row[x*4+3]
				if a == 0xff || a == 0 {
					copy(im.Pix[i:i+3], row[x*4:x*4+3])
					continue
				}
				// un-premultiply
				c := color.NRGBAModel.Convert(color.RGBA{row[x*4], row[x*4+1], row[x*4+2], a}).(color.NRGBA)
				im.Pix[i], im.Pix[i+1], im.Pix[i+2] = c.R, c.G, c.B
			}
		}
	case *image.YCbCr:
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				yi := s.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := s.COffset(b.Min.X+x, b.Min.Y+y)
				i := (y*im.Width + x) * Channels
				im.Pix[i], im.Pix[i+1], im.Pix[i+2] = color.YCbCrToRGB(s.Y[yi], s.Cb[ci], s.Cr[ci])
			}
		}
	default:
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := (y*im.Width + x) * Channels
				im.Pix[i], im.Pix[i+1], im.Pix[i+2] = c.R, c.G, c.B
			}
		}
	}
	return im
}

// ImageDecodeError reports input that could not be turned into an Image:
// an unknown or corrupt codec stream, or a missing/unreadable file.
type ImageDecodeError struct {
	Path string // empty for in-memory input
	Err  error
}

func (e *ImageDecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("could not decode image at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("could not decode image from bytes: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// IsImageDecode reports whether err is (or wraps) an ImageDecodeError.
func IsImageDecode(err error) bool {
	var de *ImageDecodeError
	return errors.As(err, &de)
}

// ErrEmptyInput is wrapped when DecodeBytes receives no data.
var ErrEmptyInput = errors.New("empty input")

// DecodeBytes decodes an encoded image held in memory. Images over MaxPixels
// are rejected from their header alone.
func DecodeBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, &ImageDecodeError{Err: ErrEmptyInput}
	}
	if err := checkDimensions(data); err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	im, err := decode(data)
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	return im, nil
}

// DecodePath reads and decodes the image stored at path.
func DecodePath(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, &ImageDecodeError{Path: path, Err: ErrEmptyInput}
	}
	if err := checkDimensions(data); err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	im, err := decode(data)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	return im, nil
}
