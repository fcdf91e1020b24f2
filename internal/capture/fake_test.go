package capture

import (
	"io"
	"log/slog"
	"sync"

	"github.com/smazurov/camcore/internal/frame"
	"github.com/smazurov/camcore/pkg/linuxav/v4l2"
	"golang.org/x/sys/unix"
)

// fakeDevice is an in-memory capture device. Buffers come back from Dequeue
// in the order they were queued.
type fakeDevice struct {
	mu sync.Mutex

	caps    v4l2.Capability
	capsErr error
	setErr  error
	getErr  error
	// adjust rewrites the requested format the way a driver would.
	adjust  func(v4l2.MplaneFormat) v4l2.MplaneFormat
	current v4l2.MplaneFormat

	reqErr  error
	granted uint32 // 0 grants the requested count

	queryErrAt int // buffer index whose QUERYBUF fails, -1 for none
	mapErrAt   int // buffer index whose mmap fails, -1 for none
	queueErrAt int // 1-based QBUF call that fails, 0 for none

	streamOnErr error
	failAt      int // 1-based DQBUF call that fails, 0 for none
	bytesUsed   func(n int) uint32
	onDequeue   func(n int)
	fill        byte

	bufLen  uint32
	regions [][]byte
	pending []uint32

	queueCalls   int
	dequeueCalls int
	unmaps       int
	doubleUnmaps int
	streaming    bool
	streamOffs   int
	closes       int
}

func newFakeDevice(width, height int) *fakeDevice {
	return &fakeDevice{
		caps: v4l2.Capability{
			Driver: "rkisp_v6",
			Card:   "rkisp_mainpath",
			Caps:   v4l2.CapVideoCaptureMplane | v4l2.CapStreaming,
		},
		bufLen:     uint32(frame.Layout{Width: width, Height: height}.Size()),
		queryErrAt: -1,
		mapErrAt:   -1,
		fill:       128,
	}
}

func (d *fakeDevice) opener() Opener {
	return func(string) (Device, error) { return d, nil }
}

func (d *fakeDevice) Capability() (v4l2.Capability, error) {
	return d.caps, d.capsErr
}

func (d *fakeDevice) SetFormatMplane(want v4l2.MplaneFormat) (v4l2.MplaneFormat, error) {
	if d.setErr != nil {
		return v4l2.MplaneFormat{}, d.setErr
	}
	got := want
	got.NumPlanes = 1
	got.Planes = []v4l2.PlaneFormat{{
		BytesPerLine: want.Width,
		SizeImage:    uint32(frame.Layout{Width: int(want.Width), Height: int(want.Height)}.Size()),
	}}
	if d.adjust != nil {
		got = d.adjust(got)
	}
	d.current = got
	return got, nil
}

func (d *fakeDevice) GetFormatMplane() (v4l2.MplaneFormat, error) {
	return d.current, d.getErr
}

func (d *fakeDevice) RequestBuffers(count uint32) (uint32, error) {
	if d.reqErr != nil {
		return 0, d.reqErr
	}
	if d.granted != 0 {
		return d.granted, nil
	}
	return count, nil
}

func (d *fakeDevice) QueryBuffer(index uint32) (v4l2.BufferPlane, error) {
	if int(index) == d.queryErrAt {
		return v4l2.BufferPlane{}, unix.EINVAL
	}
	return v4l2.BufferPlane{Index: index, Length: d.bufLen, Offset: index * d.bufLen}, nil
}

func (d *fakeDevice) Map(offset, length uint32) ([]byte, error) {
	if d.mapErrAt >= 0 && offset == uint32(d.mapErrAt)*d.bufLen {
		return nil, unix.ENOMEM
	}
	mem := make([]byte, length)
	d.mu.Lock()
	d.regions = append(d.regions, mem)
	d.mu.Unlock()
	return mem, nil
}

func (d *fakeDevice) Unmap(mem []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.regions {
		if len(r) > 0 && len(mem) > 0 && &r[0] == &mem[0] {
			d.regions = append(d.regions[:i], d.regions[i+1:]...)
			d.unmaps++
			return nil
		}
	}
	d.doubleUnmaps++
	return unix.EINVAL
}

func (d *fakeDevice) mapped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.regions)
}

func (d *fakeDevice) Queue(index uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueCalls++
	if d.queueErrAt != 0 && d.queueCalls == d.queueErrAt {
		return unix.EINVAL
	}
	d.pending = append(d.pending, index)
	return nil
}

func (d *fakeDevice) Dequeue() (v4l2.DequeuedBuffer, error) {
	d.mu.Lock()
	d.dequeueCalls++
	n := d.dequeueCalls
	if d.failAt != 0 && n == d.failAt {
		d.mu.Unlock()
		return v4l2.DequeuedBuffer{}, unix.EIO
	}
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return v4l2.DequeuedBuffer{}, unix.EAGAIN
	}
	index := d.pending[0]
	d.pending = d.pending[1:]
	d.mu.Unlock()

	if d.onDequeue != nil {
		d.onDequeue(n)
	}

	used := d.bufLen
	if d.bytesUsed != nil {
		used = d.bytesUsed(n)
	}
	// Refill every mapped region with the test pattern.
	d.mu.Lock()
	for _, r := range d.regions {
		if uint32(len(r)) == d.bufLen {
			for i := range r {
				r[i] = d.fill
			}
		}
	}
	d.mu.Unlock()

	return v4l2.DequeuedBuffer{Index: index, BytesUsed: used, Sequence: uint32(n - 1)}, nil
}

func (d *fakeDevice) StreamOn() error {
	if d.streamOnErr != nil {
		return d.streamOnErr
	}
	d.streaming = true
	return nil
}

func (d *fakeDevice) StreamOff() error {
	d.streamOffs++
	d.streaming = false
	return nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	if d.closes > 1 {
		return v4l2.ErrClosed
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
