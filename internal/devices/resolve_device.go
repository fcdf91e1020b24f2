package devices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDeviceNotFound is returned when a device identifier has no node.
var ErrDeviceNotFound = errors.New("devices: no device for identifier")

// ResolveDevicePath turns a configured capture device into a node path. Full
// paths pass through unchanged; anything else is looked up among the
// udev-maintained /dev/v4l/by-id and /dev/v4l/by-path symlinks.
func ResolveDevicePath(deviceID string) (string, error) {
	return resolveIn("/dev", deviceID)
}

func resolveIn(devRoot, deviceID string) (string, error) {
	if strings.HasPrefix(deviceID, "/") {
		return deviceID, nil
	}
	if deviceID == "" {
		return "", fmt.Errorf("%w: empty", ErrDeviceNotFound)
	}

	for _, dir := range []string{"v4l/by-id", "v4l/by-path"} {
		link := filepath.Join(devRoot, dir, deviceID)
		if _, err := os.Stat(link); err == nil {
			return link, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}
