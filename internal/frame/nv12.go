package frame

// BT.601 full-range coefficients. Each chroma term is truncated toward zero
// on its own before the sum is clamped.
const (
	coefRCr = 1.402
	coefGCb = 0.344136
	coefGCr = 0.714136
	coefBCb = 1.772
)

// A chroma term depends on a single byte, so the four truncated terms are
// tabulated once instead of computed per pixel.
var (
	tabRCr [256]int
	tabGCb [256]int
	tabGCr [256]int
	tabBCb [256]int
)

func init() {
	for i := 0; i < 256; i++ {
		c := float64(i - 128)
		tabRCr[i] = int(coefRCr * c)
		tabGCb[i] = int(coefGCb * c)
		tabGCr[i] = int(coefGCr * c)
		tabBCb[i] = int(coefBCb * c)
	}
}

// ConvertNV12 converts one NV12 image into a freshly allocated RGB24 frame.
// raw holds the luma plane immediately followed by the interleaved CbCr
// plane. The output never references raw.
func ConvertNV12(raw []byte, l Layout) (Frame, error) {
	if err := l.validate(); err != nil {
		return Frame{}, err
	}
	if len(raw) < l.Size() {
		return Frame{}, ErrShortBuffer
	}

	out := New(l.Width, l.Height)
	if err := ConvertNV12Into(out.Pix, raw, l); err != nil {
		return Frame{}, err
	}
	return out, nil
}

// ConvertNV12Into is ConvertNV12 writing into a caller-owned buffer of at
// least Width*Height*3 bytes. It does not allocate.
func ConvertNV12Into(dst, raw []byte, l Layout) error {
	if err := l.validate(); err != nil {
		return err
	}
	stride := l.stride()
	lumaSize := stride * l.Height
	if len(raw) < l.Size() || len(dst) < l.Width*l.Height*BytesPerPixel {
		return ErrShortBuffer
	}

	luma := raw[:lumaSize]
	chroma := raw[lumaSize:l.Size()]
	rowBytes := l.Width * BytesPerPixel

	for y := 0; y < l.Height; y++ {
		yrow := luma[y*stride : y*stride+l.Width]
		crow := chroma[(y/2)*stride : (y/2)*stride+l.Width]
		out := dst[y*rowBytes : (y+1)*rowBytes]

		for x := 0; x < l.Width; x++ {
			c := x &^ 1
			cb, cr := crow[c], crow[c+1]
			lum := int(yrow[x])

			i := x * BytesPerPixel
			out[i] = clamp(lum + tabRCr[cr])
			out[i+1] = clamp(lum - tabGCb[cb] - tabGCr[cr])
			out[i+2] = clamp(lum + tabBCb[cb])
		}
	}
	return nil
}

func (l Layout) validate() error {
	if l.Width <= 0 || l.Height <= 0 || l.Width%2 != 0 {
		return ErrInvalidGeometry
	}
	if l.Stride != 0 && l.Stride < l.Width {
		return ErrInvalidGeometry
	}
	return nil
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
