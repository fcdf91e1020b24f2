// Package devices discovers V4L2 capture devices and reports when they come
// and go.
package devices

import "errors"

// ErrUnsupported is returned by the detector on platforms without V4L2.
var ErrUnsupported = errors.New("devices: V4L2 is not supported on this platform")

// DeviceInfo describes one capture-capable video node.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string
	Caps       uint32
	Mplane     bool
}

// FormatInfo is a pixel format advertised by a device.
type FormatInfo struct {
	PixelFormat uint32
	FourCC      string
	FormatName  string
	Emulated    bool
}

// Resolution is a frame size advertised for a pixel format.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Detector queries the devices present on the system.
type Detector interface {
	// FindDevices returns all video nodes that can capture.
	FindDevices() ([]DeviceInfo, error)

	// GetDeviceFormats returns the pixel formats a device advertises.
	GetDeviceFormats(devicePath string) ([]FormatInfo, error)

	// GetDeviceResolutions returns the frame sizes for one pixel format.
	GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error)
}

// NewDetector creates a platform-specific device detector.
func NewDetector() Detector {
	return newDetector()
}
