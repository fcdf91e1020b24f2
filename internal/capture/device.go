package capture

import "github.com/smazurov/camcore/pkg/linuxav/v4l2"

// Device is the subset of a V4L2 multi-planar capture device the session
// drives. *v4l2.CaptureDevice implements it on Linux.
type Device interface {
	Capability() (v4l2.Capability, error)
	SetFormatMplane(want v4l2.MplaneFormat) (v4l2.MplaneFormat, error)
	GetFormatMplane() (v4l2.MplaneFormat, error)
	RequestBuffers(count uint32) (uint32, error)
	QueryBuffer(index uint32) (v4l2.BufferPlane, error)
	Map(offset, length uint32) ([]byte, error)
	Unmap(mem []byte) error
	Queue(index uint32) error
	Dequeue() (v4l2.DequeuedBuffer, error)
	StreamOn() error
	StreamOff() error
	Close() error
}

// Opener opens the capture device at path.
type Opener func(path string) (Device, error)
