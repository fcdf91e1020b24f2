//go:build linux

package v4l2

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CaptureDevice is an open multi-planar MMAP capture device. It is not safe
// for concurrent use; one goroutine owns it for the whole session.
type CaptureDevice struct {
	fd   int
	path string

	// planes is handed to the kernel by pointer on every buffer ioctl. It is
	// a field so that it lives on the heap next to the device.
	planes [videoMaxPlanes]v4l2Plane
}

// OpenCapture opens path read-write in blocking mode.
func OpenCapture(path string) (*CaptureDevice, error) {
	fd, err := openBlocking(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &CaptureDevice{fd: fd, path: path}, nil
}

// Path returns the device node the CaptureDevice was opened from.
func (d *CaptureDevice) Path() string {
	return d.path
}

// Capability issues VIDIOC_QUERYCAP.
func (d *CaptureDevice) Capability() (Capability, error) {
	if d.fd < 0 {
		return Capability{}, ErrClosed
	}
	return queryCapability(d.fd)
}

// SetFormatMplane issues VIDIOC_S_FMT and returns the format as adjusted by
// the driver.
func (d *CaptureDevice) SetFormatMplane(want MplaneFormat) (MplaneFormat, error) {
	if d.fd < 0 {
		return MplaneFormat{}, ErrClosed
	}

	f := v4l2Format{typ: BufTypeVideoCaptureMplane}
	pix := (*v4l2PixFormatMplane)(unsafe.Pointer(&f.fmt[0]))
	pix.width = want.Width
	pix.height = want.Height
	pix.pixelformat = want.PixelFormat
	pix.numPlanes = want.NumPlanes

	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return MplaneFormat{}, fmt.Errorf("VIDIOC_S_FMT: %w", err)
	}
	return decodeMplane(pix), nil
}

// GetFormatMplane issues VIDIOC_G_FMT.
func (d *CaptureDevice) GetFormatMplane() (MplaneFormat, error) {
	if d.fd < 0 {
		return MplaneFormat{}, ErrClosed
	}

	f := v4l2Format{typ: BufTypeVideoCaptureMplane}
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return MplaneFormat{}, fmt.Errorf("VIDIOC_G_FMT: %w", err)
	}
	return decodeMplane((*v4l2PixFormatMplane)(unsafe.Pointer(&f.fmt[0]))), nil
}

func decodeMplane(pix *v4l2PixFormatMplane) MplaneFormat {
	out := MplaneFormat{
		Width:       pix.width,
		Height:      pix.height,
		PixelFormat: pix.pixelformat,
		NumPlanes:   pix.numPlanes,
	}
	n := int(pix.numPlanes)
	if n > videoMaxPlanes {
		n = videoMaxPlanes
	}
	for i := 0; i < n; i++ {
		out.Planes = append(out.Planes, PlaneFormat{
			SizeImage:    pix.planeFmt[i].sizeimage,
			BytesPerLine: pix.planeFmt[i].bytesperline,
		})
	}
	return out
}

// RequestBuffers issues VIDIOC_REQBUFS for MMAP buffers and returns the
// number the driver granted. A count of zero frees the driver's buffers.
func (d *CaptureDevice) RequestBuffers(count uint32) (uint32, error) {
	if d.fd < 0 {
		return 0, ErrClosed
	}

	req := v4l2RequestBuffers{
		count:  count,
		typ:    BufTypeVideoCaptureMplane,
		memory: MemoryMmap,
	}
	if err := ioctl(d.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("VIDIOC_REQBUFS: %w", err)
	}
	return req.count, nil
}

// QueryBuffer issues VIDIOC_QUERYBUF and reports the length and mmap offset
// of plane 0.
func (d *CaptureDevice) QueryBuffer(index uint32) (BufferPlane, error) {
	if d.fd < 0 {
		return BufferPlane{}, ErrClosed
	}

	buf := d.newBuffer(index)
	if err := ioctl(d.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
		return BufferPlane{}, fmt.Errorf("VIDIOC_QUERYBUF %d: %w", index, err)
	}
	return BufferPlane{
		Index:  index,
		Length: d.planes[0].length,
		Offset: d.planes[0].memOffset(),
	}, nil
}

// Map maps a driver buffer into the process as shared memory.
func (d *CaptureDevice) Map(offset, length uint32) ([]byte, error) {
	if d.fd < 0 {
		return nil, ErrClosed
	}

	mem, err := unix.Mmap(d.fd, int64(offset), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap offset %#x length %d: %w", offset, length, err)
	}
	return mem, nil
}

// Unmap releases a region returned by Map.
func (d *CaptureDevice) Unmap(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Queue hands buffer index to the driver (VIDIOC_QBUF).
func (d *CaptureDevice) Queue(index uint32) error {
	if d.fd < 0 {
		return ErrClosed
	}

	buf := d.newBuffer(index)
	if err := ioctl(d.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("VIDIOC_QBUF %d: %w", index, err)
	}
	return nil
}

// Dequeue blocks until the driver returns a filled buffer (VIDIOC_DQBUF).
func (d *CaptureDevice) Dequeue() (DequeuedBuffer, error) {
	if d.fd < 0 {
		return DequeuedBuffer{}, ErrClosed
	}

	buf := d.newBuffer(0)
	if err := ioctl(d.fd, vidiocDqbuf, unsafe.Pointer(&buf)); err != nil {
		return DequeuedBuffer{}, fmt.Errorf("VIDIOC_DQBUF: %w", err)
	}
	return DequeuedBuffer{
		Index:     buf.index,
		BytesUsed: d.planes[0].bytesused,
		Sequence:  buf.sequence,
		Timestamp: time.Duration(buf.timestamp.Nano()),
	}, nil
}

// StreamOn issues VIDIOC_STREAMON.
func (d *CaptureDevice) StreamOn() error {
	if d.fd < 0 {
		return ErrClosed
	}

	typ := uint32(BufTypeVideoCaptureMplane)
	if err := ioctl(d.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMON: %w", err)
	}
	return nil
}

// StreamOff issues VIDIOC_STREAMOFF. The driver returns every queued buffer
// to the dequeued state.
func (d *CaptureDevice) StreamOff() error {
	if d.fd < 0 {
		return ErrClosed
	}

	typ := uint32(BufTypeVideoCaptureMplane)
	if err := ioctl(d.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMOFF: %w", err)
	}
	return nil
}

// Close closes the device node. Calling Close twice returns ErrClosed.
func (d *CaptureDevice) Close() error {
	if d.fd < 0 {
		return ErrClosed
	}
	fd := d.fd
	d.fd = -1
	return close(fd)
}

// newBuffer prepares an mplane MMAP buffer descriptor pointing at d.planes.
func (d *CaptureDevice) newBuffer(index uint32) v4l2Buffer {
	d.planes = [videoMaxPlanes]v4l2Plane{}
	buf := v4l2Buffer{
		index:  index,
		typ:    BufTypeVideoCaptureMplane,
		memory: MemoryMmap,
	}
	buf.setPlanes(&d.planes[0], videoMaxPlanes)
	return buf
}
