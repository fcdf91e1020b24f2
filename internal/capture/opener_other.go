//go:build !linux

package capture

import (
	"errors"
	"runtime"
)

// OpenV4L2 is unavailable outside Linux.
func OpenV4L2(path string) (Device, error) {
	return nil, errors.New("V4L2 capture is not supported on " + runtime.GOOS)
}
