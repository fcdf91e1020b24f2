//go:build !linux

package devices

type otherDetector struct{}

func newDetector() Detector {
	return otherDetector{}
}

func (otherDetector) FindDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{}, nil
}

func (otherDetector) GetDeviceFormats(string) ([]FormatInfo, error) {
	return nil, ErrUnsupported
}

func (otherDetector) GetDeviceResolutions(string, uint32) ([]Resolution, error) {
	return nil, ErrUnsupported
}
