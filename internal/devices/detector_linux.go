//go:build linux

package devices

import (
	"github.com/smazurov/camcore/pkg/linuxav/v4l2"
)

type linuxDetector struct{}

func newDetector() Detector {
	return linuxDetector{}
}

// FindDevices returns all currently available V4L2 capture devices.
func (linuxDetector) FindDevices() ([]DeviceInfo, error) {
	found, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(found))
	for i, dev := range found {
		devices[i] = DeviceInfo{
			DevicePath: dev.DevicePath,
			DeviceName: dev.DeviceName,
			DeviceID:   dev.DeviceID,
			Caps:       dev.Caps,
			Mplane:     dev.Caps&v4l2.CapVideoCaptureMplane != 0,
		}
	}
	return devices, nil
}

// GetDeviceFormats returns supported formats for a device.
func (linuxDetector) GetDeviceFormats(devicePath string) ([]FormatInfo, error) {
	found, err := v4l2.GetFormats(devicePath)
	if err != nil {
		return nil, err
	}

	formats := make([]FormatInfo, len(found))
	for i, f := range found {
		formats[i] = FormatInfo{
			PixelFormat: f.PixelFormat,
			FourCC:      v4l2.FormatFourCC(f.PixelFormat),
			FormatName:  f.FormatName,
			Emulated:    f.Emulated,
		}
	}
	return formats, nil
}

// GetDeviceResolutions returns supported resolutions for a format.
func (linuxDetector) GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	found, err := v4l2.GetResolutions(devicePath, pixelFormat)
	if err != nil {
		return nil, err
	}

	resolutions := make([]Resolution, len(found))
	for i, r := range found {
		resolutions[i] = Resolution{Width: r.Width, Height: r.Height}
	}
	return resolutions, nil
}
