// Package frame holds the packed RGB frames produced by the capture loop and
// the NV12 conversion that fills them.
//
// A Frame never aliases driver buffer memory: every Frame and CroppedFrame
// owns its pixel slice, so it stays valid after the source buffer has been
// handed back to the device.
package frame

import (
	"errors"
	"image"
	"image/color"
)

// BytesPerPixel is the size of one packed RGB24 pixel.
const BytesPerPixel = 3

var (
	// ErrShortBuffer is returned when an input or output slice is too small
	// for the requested geometry.
	ErrShortBuffer = errors.New("frame: buffer too short for geometry")

	// ErrInvalidGeometry is returned for non-positive or odd dimensions,
	// strides narrower than the width, and crops that do not fit.
	ErrInvalidGeometry = errors.New("frame: invalid geometry")
)

// Layout describes the memory layout of one NV12 image.
type Layout struct {
	Width  int
	Height int
	// Stride is the luma row pitch in bytes; the chroma plane uses the same
	// pitch. Zero means Width.
	Stride int
}

func (l Layout) stride() int {
	if l.Stride == 0 {
		return l.Width
	}
	return l.Stride
}

// Size returns the number of bytes an NV12 image with this layout occupies.
func (l Layout) Size() int {
	s := l.stride()
	return s*l.Height + s*((l.Height+1)/2)
}

// Frame is a packed RGB24 image, row-major, 3 bytes per pixel.
//
// Frame implements image.Image so it can be handed to the standard encoders.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a black frame.
func New(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// RGB returns the pixel at (x, y).
func (f Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * BytesPerPixel
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// ColorModel implements image.Image.
func (f Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	r, g, b := f.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// CroppedFrame is a square region copied out of a Frame for the inference
// path. X0 and Y0 locate the region in the source frame so that detections
// can be mapped back.
type CroppedFrame struct {
	Frame
	X0 int
	Y0 int
}

// CropCenterSquare copies the centered side×side square out of src.
// The origin is ((W-side)/2, (H-side)/2).
func CropCenterSquare(src Frame, side int) (CroppedFrame, error) {
	if side <= 0 || side > src.Width || side > src.Height {
		return CroppedFrame{}, ErrInvalidGeometry
	}
	if len(src.Pix) < src.Width*src.Height*BytesPerPixel {
		return CroppedFrame{}, ErrShortBuffer
	}

	x0 := (src.Width - side) / 2
	y0 := (src.Height - side) / 2

	out := New(side, side)
	rowBytes := side * BytesPerPixel
	for j := 0; j < side; j++ {
		from := ((y0+j)*src.Width + x0) * BytesPerPixel
		copy(out.Pix[j*rowBytes:(j+1)*rowBytes], src.Pix[from:from+rowBytes])
	}

	return CroppedFrame{Frame: out, X0: x0, Y0: y0}, nil
}
