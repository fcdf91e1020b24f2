//go:build linux

package capture

import "github.com/smazurov/camcore/pkg/linuxav/v4l2"

// OpenV4L2 opens path as a blocking V4L2 capture device.
func OpenV4L2(path string) (Device, error) {
	dev, err := v4l2.OpenCapture(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
