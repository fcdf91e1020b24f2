package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/camcore/pkg/linuxav/v4l2"
)

// Owner records which side of the QBUF/DQBUF handoff holds a buffer.
type Owner int

// Buffer owners.
const (
	OwnerDriver Owner = iota
	OwnerApplication
)

func (o Owner) String() string {
	if o == OwnerApplication {
		return "application"
	}
	return "driver"
}

// Buffer is one driver buffer mapped into the process. Data is only valid
// while the buffer is application-owned; once requeued the driver may
// overwrite it at any time.
type Buffer struct {
	Index  uint32
	Data   []byte
	Length uint32
	Owner  Owner
}

// BufferPool owns the mapped driver buffers of a session. Buffers are mapped
// once by AllocatePool and unmapped once by Release.
type BufferPool struct {
	dev     Device
	buffers []*Buffer
	logger  *slog.Logger
}

// AllocatePool requests count MMAP buffers, maps every one of them and hands
// them all to the driver. On error nothing stays mapped.
func AllocatePool(dev Device, count int, logger *slog.Logger) (*BufferPool, error) {
	granted, err := dev.RequestBuffers(uint32(count))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBufferRequest, err)
	}
	if int(granted) < count {
		return nil, fmt.Errorf("%w: driver granted %d of %d buffers", ErrBufferRequest, granted, count)
	}

	p := &BufferPool{
		dev:     dev,
		buffers: make([]*Buffer, 0, count),
		logger:  logger,
	}

	for i := uint32(0); i < uint32(count); i++ {
		if err := p.mapBuffer(i); err != nil {
			p.Release()
			return nil, err
		}
	}

	for _, b := range p.buffers {
		if err := dev.Queue(b.Index); err != nil {
			p.Release()
			return nil, fmt.Errorf("%w: buffer %d: %w", ErrRequeue, b.Index, err)
		}
		b.Owner = OwnerDriver
	}

	return p, nil
}

func (p *BufferPool) mapBuffer(index uint32) error {
	plane, err := p.dev.QueryBuffer(index)
	if err != nil {
		return fmt.Errorf("%w: query buffer %d: %w", ErrMapping, index, err)
	}

	mem, err := p.dev.Map(plane.Offset, plane.Length)
	if err != nil {
		return fmt.Errorf("%w: buffer %d: %w", ErrMapping, index, err)
	}

	p.buffers = append(p.buffers, &Buffer{
		Index:  index,
		Data:   mem,
		Length: plane.Length,
		Owner:  OwnerApplication,
	})
	p.logger.Debug("Mapped buffer", "index", index, "length", plane.Length, "offset", plane.Offset)
	return nil
}

// Len returns the number of buffers in the pool.
func (p *BufferPool) Len() int {
	return len(p.buffers)
}

// Mapped returns how many buffers are still mapped.
func (p *BufferPool) Mapped() int {
	n := 0
	for _, b := range p.buffers {
		if b.Data != nil {
			n++
		}
	}
	return n
}

// Acquire marks the buffer the driver just returned as application-owned.
func (p *BufferPool) Acquire(d v4l2.DequeuedBuffer) (*Buffer, error) {
	if int(d.Index) >= len(p.buffers) {
		return nil, fmt.Errorf("%w: driver returned unknown buffer %d", ErrDequeue, d.Index)
	}
	b := p.buffers[d.Index]
	if b.Data == nil {
		return nil, fmt.Errorf("%w: buffer %d is not mapped", ErrDequeue, d.Index)
	}
	b.Owner = OwnerApplication
	return b, nil
}

// Requeue gives b back to the driver.
func (p *BufferPool) Requeue(b *Buffer) error {
	b.Owner = OwnerDriver
	if err := p.dev.Queue(b.Index); err != nil {
		return fmt.Errorf("%w: buffer %d: %w", ErrRequeue, b.Index, err)
	}
	return nil
}

// Release unmaps every mapped buffer. It is safe to call more than once and
// after a partial mapping failure; a region is never unmapped twice.
func (p *BufferPool) Release() error {
	var errs []error
	for _, b := range p.buffers {
		if b.Data == nil {
			continue
		}
		if err := p.dev.Unmap(b.Data); err != nil {
			errs = append(errs, fmt.Errorf("buffer %d: %w", b.Index, err))
		}
		b.Data = nil
	}
	return errors.Join(errs...)
}
