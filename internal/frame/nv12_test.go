package frame

import (
	"errors"
	"math/rand"
	"testing"
)

// nv12 builds an NV12 image with constant luma and chroma.
func nv12(l Layout, lum, cb, cr byte) []byte {
	raw := make([]byte, l.Size())
	lumaSize := l.stride() * l.Height
	for i := 0; i < lumaSize; i++ {
		raw[i] = lum
	}
	for i := lumaSize; i+1 < len(raw); i += 2 {
		raw[i] = cb
		raw[i+1] = cr
	}
	return raw
}

// referencePixel evaluates the conversion formula directly.
func referencePixel(lum, cb, cr byte) (byte, byte, byte) {
	u := float64(int(cb) - 128)
	v := float64(int(cr) - 128)
	y := int(lum)
	r := y + int(1.402*v)
	g := y - int(0.344136*u) - int(0.714136*v)
	b := y + int(1.772*u)
	return clamp(r), clamp(g), clamp(b)
}

func TestConvertNV12UniformGray(t *testing.T) {
	l := Layout{Width: 16, Height: 8}

	for _, lum := range []byte{0, 1, 64, 128, 200, 255} {
		f, err := ConvertNV12(nv12(l, lum, 128, 128), l)
		if err != nil {
			t.Fatalf("ConvertNV12: %v", err)
		}
		for i, v := range f.Pix {
			if v != lum {
				t.Fatalf("Y=%d: byte %d = %d, want %d", lum, i, v, lum)
			}
		}
	}
}

func TestConvertNV12Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		lum    byte
		cb, cr byte
		want   [3]byte
	}{
		{name: "black", lum: 0, cb: 128, cr: 128, want: [3]byte{0, 0, 0}},
		{name: "white", lum: 255, cb: 128, cr: 128, want: [3]byte{255, 255, 255}},
		{name: "max red clamps", lum: 255, cb: 128, cr: 255, want: [3]byte{255, 165, 255}},
		{name: "min chroma clamps low", lum: 0, cb: 0, cr: 0, want: [3]byte{0, 135, 0}},
	}

	l := Layout{Width: 4, Height: 2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ConvertNV12(nv12(l, tt.lum, tt.cb, tt.cr), l)
			if err != nil {
				t.Fatalf("ConvertNV12: %v", err)
			}
			r, g, b := f.RGB(1, 1)
			if [3]byte{r, g, b} != tt.want {
				t.Errorf("pixel = (%d,%d,%d), want %v", r, g, b, tt.want)
			}
		})
	}
}

func TestConvertNV12MatchesFormula(t *testing.T) {
	l := Layout{Width: 32, Height: 14}
	rng := rand.New(rand.NewSource(42))
	raw := make([]byte, l.Size())
	rng.Read(raw)

	f, err := ConvertNV12(raw, l)
	if err != nil {
		t.Fatalf("ConvertNV12: %v", err)
	}
	if f.Width != l.Width || f.Height != l.Height || len(f.Pix) != l.Width*l.Height*3 {
		t.Fatalf("frame geometry = %dx%d len %d", f.Width, f.Height, len(f.Pix))
	}

	chroma := raw[l.Width*l.Height:]
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			idx := (y/2)*l.Width + (x &^ 1)
			wr, wg, wb := referencePixel(raw[y*l.Width+x], chroma[idx], chroma[idx+1])
			r, g, b := f.RGB(x, y)
			if r != wr || g != wg || b != wb {
				t.Fatalf("(%d,%d) = (%d,%d,%d), want (%d,%d,%d)", x, y, r, g, b, wr, wg, wb)
			}
		}
	}
}

func TestConvertNV12Stride(t *testing.T) {
	packed := Layout{Width: 8, Height: 4}
	padded := Layout{Width: 8, Height: 4, Stride: 12}

	rng := rand.New(rand.NewSource(7))
	src := make([]byte, packed.Size())
	rng.Read(src)

	// Copy src into a padded buffer, row by row, for both planes.
	raw := make([]byte, padded.Size())
	rows := packed.Height + packed.Height/2
	for r := 0; r < rows; r++ {
		copy(raw[r*padded.Stride:], src[r*packed.Width:(r+1)*packed.Width])
	}

	want, err := ConvertNV12(src, packed)
	if err != nil {
		t.Fatalf("packed: %v", err)
	}
	got, err := ConvertNV12(raw, padded)
	if err != nil {
		t.Fatalf("padded: %v", err)
	}
	if string(got.Pix) != string(want.Pix) {
		t.Error("padded stride conversion differs from packed conversion")
	}
}

func TestConvertNV12Errors(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		raw    int
		want   error
	}{
		{"short input", Layout{Width: 4, Height: 4}, 23, ErrShortBuffer},
		{"odd width", Layout{Width: 5, Height: 4}, 100, ErrInvalidGeometry},
		{"zero height", Layout{Width: 4, Height: 0}, 100, ErrInvalidGeometry},
		{"stride below width", Layout{Width: 8, Height: 2, Stride: 4}, 100, ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConvertNV12(make([]byte, tt.raw), tt.layout)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConvertNV12IntoDoesNotAllocate(t *testing.T) {
	l := Layout{Width: 64, Height: 48}
	raw := nv12(l, 90, 60, 200)
	dst := make([]byte, l.Width*l.Height*BytesPerPixel)

	allocs := testing.AllocsPerRun(10, func() {
		if err := ConvertNV12Into(dst, raw, l); err != nil {
			t.Fatal(err)
		}
	})
	if allocs != 0 {
		t.Errorf("ConvertNV12Into allocated %.1f times per run", allocs)
	}
}

func TestConvertNV12DoesNotAliasInput(t *testing.T) {
	l := Layout{Width: 4, Height: 2}
	raw := nv12(l, 100, 128, 128)

	f, err := ConvertNV12(raw, l)
	if err != nil {
		t.Fatal(err)
	}
	for i := range raw {
		raw[i] = 0
	}
	if r, _, _ := f.RGB(0, 0); r != 100 {
		t.Errorf("frame changed after input was overwritten: r=%d", r)
	}
}

func BenchmarkConvertNV12Into(b *testing.B) {
	l := Layout{Width: 1056, Height: 784}
	raw := make([]byte, l.Size())
	rand.New(rand.NewSource(1)).Read(raw)
	dst := make([]byte, l.Width*l.Height*BytesPerPixel)

	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ConvertNV12Into(dst, raw, l)
	}
}
