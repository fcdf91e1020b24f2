package v4l2

import (
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed CaptureDevice.
var ErrClosed = errors.New("v4l2: device closed")

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Capability is the decoded result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	// Caps holds the effective capabilities: device_caps when the driver
	// reports them, capabilities otherwise.
	Caps uint32
}

// SupportsCaptureMplane reports whether the device can capture through the
// multi-planar API.
func (c Capability) SupportsCaptureMplane() bool {
	return c.Caps&CapVideoCaptureMplane != 0
}

// SupportsStreaming reports whether the device supports streaming I/O.
func (c Capability) SupportsStreaming() bool {
	return c.Caps&CapStreaming != 0
}

// PlaneFormat describes one memory plane of a multi-planar format.
type PlaneFormat struct {
	SizeImage    uint32
	BytesPerLine uint32
}

// MplaneFormat is the Go view of struct v4l2_pix_format_mplane.
type MplaneFormat struct {
	Width       uint32
	Height      uint32
	PixelFormat uint32
	NumPlanes   uint8
	// Planes is only filled on the way back from the driver.
	Planes []PlaneFormat
}

// BufferPlane is the location of plane 0 of an MMAP buffer, as reported by
// VIDIOC_QUERYBUF.
type BufferPlane struct {
	Index  uint32
	Length uint32
	Offset uint32
}

// DequeuedBuffer describes a buffer handed back by VIDIOC_DQBUF.
type DequeuedBuffer struct {
	Index     uint32
	BytesUsed uint32
	Sequence  uint32
	Timestamp time.Duration
}

// Capability flags.
const (
	CapVideoCapture       = 0x00000001
	CapVideoCaptureMplane = 0x00001000
	CapStreaming          = 0x04000000
	CapDeviceCaps         = 0x80000000
)

// Buffer types and memory models.
const (
	BufTypeVideoCapture       = 1
	BufTypeVideoCaptureMplane = 9
	MemoryMmap                = 1
)

// Pixel formats.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtHEVC  = 0x43564548 // 'HEVC'
	PixFmtNV12  = 0x3231564E // 'NV12'
)

// videoMaxPlanes mirrors VIDEO_MAX_PLANES.
const videoMaxPlanes = 8

// Format flags.
const (
	fmtFlagEmulated = 0x0002
)

// Frame size types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}
