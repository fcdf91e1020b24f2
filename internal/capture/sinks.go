package capture

import (
	"sync/atomic"

	"github.com/smazurov/camcore/internal/frame"
)

// ChannelSink moves frames off the capture goroutine. Delivery never blocks:
// when a channel is full the new frame is dropped and counted.
type ChannelSink struct {
	frames chan frame.Frame
	crops  chan frame.CroppedFrame

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// ChannelStats counts deliveries across both channels.
type ChannelStats struct {
	Sent    uint64
	Dropped uint64
}

// NewChannelSink creates a sink whose channels buffer depth frames each.
func NewChannelSink(depth int) *ChannelSink {
	return &ChannelSink{
		frames: make(chan frame.Frame, depth),
		crops:  make(chan frame.CroppedFrame, depth),
	}
}

// Frames returns the full-frame channel.
func (c *ChannelSink) Frames() <-chan frame.Frame {
	return c.frames
}

// Crops returns the cropped-frame channel.
func (c *ChannelSink) Crops() <-chan frame.CroppedFrame {
	return c.crops
}

// OnFrame implements DisplaySink.
func (c *ChannelSink) OnFrame(f frame.Frame) {
	select {
	case c.frames <- f:
		c.sent.Add(1)
	default:
		c.dropped.Add(1)
	}
}

// OnCroppedFrame implements InferenceSink.
func (c *ChannelSink) OnCroppedFrame(f frame.CroppedFrame) {
	select {
	case c.crops <- f:
		c.sent.Add(1)
	default:
		c.dropped.Add(1)
	}
}

// Stats returns a snapshot of the delivery counters.
func (c *ChannelSink) Stats() ChannelStats {
	return ChannelStats{
		Sent:    c.sent.Load(),
		Dropped: c.dropped.Load(),
	}
}
