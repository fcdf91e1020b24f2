//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TestErrnoWrapping verifies that errors.Is still sees the errno after the
// capture methods wrap it with the ioctl name.
func TestErrnoWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "wrapped EINVAL matches EINVAL",
			err:      fmt.Errorf("VIDIOC_S_FMT: %w", unix.EINVAL),
			target:   unix.EINVAL,
			expected: true,
		},
		{
			name:     "wrapped EIO matches EIO",
			err:      fmt.Errorf("VIDIOC_DQBUF: %w", unix.EIO),
			target:   unix.EIO,
			expected: true,
		},
		{
			name:     "wrapped ENODEV does not match EIO",
			err:      fmt.Errorf("VIDIOC_DQBUF: %w", unix.ENODEV),
			target:   unix.EIO,
			expected: false,
		},
		{
			name:     "ENOTTY matches ENOTTY",
			err:      unix.ENOTTY,
			target:   unix.ENOTTY,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errors.Is(tt.err, tt.target)
			if result != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v",
					tt.err, tt.target, result, tt.expected)
			}
		})
	}
}

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		name     string
		format   uint32
		expected string
	}{
		{name: "YUYV format", format: PixFmtYUYV, expected: "YUYV"},
		{name: "MJPEG format", format: PixFmtMJPEG, expected: "MJPG"},
		{name: "H264 format", format: PixFmtH264, expected: "H264"},
		{name: "HEVC format", format: PixFmtHEVC, expected: "HEVC"},
		{name: "NV12 format", format: PixFmtNV12, expected: "NV12"},
		{name: "null bytes", format: 0x00000000, expected: "\x00\x00\x00\x00"},
		{name: "mixed bytes", format: 0x01020304, expected: "\x04\x03\x02\x01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFourCC(tt.format)
			if result != tt.expected {
				t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestCapabilityFlags(t *testing.T) {
	tests := []struct {
		name          string
		caps          uint32
		wantMplane    bool
		wantStreaming bool
	}{
		{"rkisp mainpath", CapVideoCaptureMplane | CapStreaming, true, true},
		{"uvc webcam", CapVideoCapture | CapStreaming, false, true},
		{"read-only device", CapVideoCapture, false, false},
		{"none", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Capability{Caps: tt.caps}
			if got := c.SupportsCaptureMplane(); got != tt.wantMplane {
				t.Errorf("SupportsCaptureMplane() = %v, want %v", got, tt.wantMplane)
			}
			if got := c.SupportsStreaming(); got != tt.wantStreaming {
				t.Errorf("SupportsStreaming() = %v, want %v", got, tt.wantStreaming)
			}
		})
	}
}

func TestDecodeMplane(t *testing.T) {
	pix := v4l2PixFormatMplane{
		width:       1056,
		height:      784,
		pixelformat: PixFmtNV12,
		numPlanes:   1,
	}
	pix.planeFmt[0] = v4l2PlanePixFormat{sizeimage: 1056 * 784 * 3 / 2, bytesperline: 1056}

	got := decodeMplane(&pix)
	if got.Width != 1056 || got.Height != 784 || got.PixelFormat != PixFmtNV12 {
		t.Fatalf("decodeMplane geometry = %+v", got)
	}
	if got.NumPlanes != 1 || len(got.Planes) != 1 {
		t.Fatalf("expected 1 plane, got NumPlanes=%d len=%d", got.NumPlanes, len(got.Planes))
	}
	if got.Planes[0].BytesPerLine != 1056 || got.Planes[0].SizeImage != 1241856 {
		t.Errorf("plane 0 = %+v", got.Planes[0])
	}
}

func TestDecodeMplaneClampsPlaneCount(t *testing.T) {
	pix := v4l2PixFormatMplane{numPlanes: 200}
	got := decodeMplane(&pix)
	if len(got.Planes) != videoMaxPlanes {
		t.Errorf("len(Planes) = %d, want %d", len(got.Planes), videoMaxPlanes)
	}
}

// TestStructOffsets checks the fields the kernel reads by offset.
func TestStructOffsets(t *testing.T) {
	var pix v4l2PixFormatMplane
	if off := unsafe.Offsetof(pix.numPlanes); off != 180 {
		t.Errorf("v4l2_pix_format_mplane.num_planes offset = %d, want 180", off)
	}

	var buf v4l2Buffer
	if unsafe.Sizeof(uintptr(0)) == 8 {
		if off := unsafe.Offsetof(buf.m); off != 64 {
			t.Errorf("v4l2_buffer.m offset = %d, want 64", off)
		}
		if off := unsafe.Offsetof(buf.length); off != 72 {
			t.Errorf("v4l2_buffer.length offset = %d, want 72", off)
		}
	}
}

func TestSetPlanes(t *testing.T) {
	var planes [videoMaxPlanes]v4l2Plane
	var buf v4l2Buffer
	buf.setPlanes(&planes[0], 2)

	if buf.length != 2 {
		t.Errorf("length = %d, want 2", buf.length)
	}
	if uintptr(buf.m) != uintptr(unsafe.Pointer(&planes[0])) {
		t.Error("m does not point at the plane array")
	}
}

func TestClosedDevice(t *testing.T) {
	d := &CaptureDevice{fd: -1}

	if _, err := d.Dequeue(); !errors.Is(err, ErrClosed) {
		t.Errorf("Dequeue on closed device: got %v, want ErrClosed", err)
	}
	if err := d.Queue(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Queue on closed device: got %v, want ErrClosed", err)
	}
	if err := d.StreamOff(); !errors.Is(err, ErrClosed) {
		t.Errorf("StreamOff on closed device: got %v, want ErrClosed", err)
	}
	if err := d.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: got %v, want ErrClosed", err)
	}
}

func TestOpenCaptureMissingDevice(t *testing.T) {
	_, err := OpenCapture("/dev/camcore-does-not-exist")
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("OpenCapture missing path: got %v, want ENOENT", err)
	}
}

func TestCstr(t *testing.T) {
	if got := cstr([]byte("rkisp_v6\x00\x00\x00")); got != "rkisp_v6" {
		t.Errorf("cstr = %q", got)
	}
	if got := cstr([]byte("full")); got != "full" {
		t.Errorf("cstr without terminator = %q", got)
	}
}
