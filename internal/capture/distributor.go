package capture

import (
	"fmt"

	"github.com/smazurov/camcore/internal/frame"
)

// DisplaySink receives every converted frame. It is called on the capture
// goroutine and must not block for long; the frame may be kept.
type DisplaySink interface {
	OnFrame(f frame.Frame)
}

// InferenceSink receives the centered square crop of every frame.
type InferenceSink interface {
	OnCroppedFrame(f frame.CroppedFrame)
}

// DisplaySinkFunc adapts a function to DisplaySink.
type DisplaySinkFunc func(f frame.Frame)

// OnFrame implements DisplaySink.
func (fn DisplaySinkFunc) OnFrame(f frame.Frame) { fn(f) }

// InferenceSinkFunc adapts a function to InferenceSink.
type InferenceSinkFunc func(f frame.CroppedFrame)

// OnCroppedFrame implements InferenceSink.
func (fn InferenceSinkFunc) OnCroppedFrame(f frame.CroppedFrame) { fn(f) }

// Distributor hands each frame to the display sinks in registration order
// and, when an inference sink is attached, a square crop to it.
//
// Display sinks share the same Frame and must treat its pixels as
// read-only. The crop is a separate copy.
type Distributor struct {
	display   []DisplaySink
	inference InferenceSink
}

// NewDistributor builds a distributor. inference may be nil.
func NewDistributor(inference InferenceSink, display ...DisplaySink) *Distributor {
	return &Distributor{
		display:   display,
		inference: inference,
	}
}

// HasInference reports whether crops are produced.
func (d *Distributor) HasInference() bool {
	return d.inference != nil
}

// Publish delivers f synchronously. The side of the crop is the frame
// height.
func (d *Distributor) Publish(f frame.Frame) error {
	for _, sink := range d.display {
		sink.OnFrame(f)
	}

	if d.inference == nil {
		return nil
	}
	crop, err := frame.CropCenterSquare(f, f.Height)
	if err != nil {
		return fmt.Errorf("crop %dx%d frame: %w", f.Width, f.Height, err)
	}
	d.inference.OnCroppedFrame(crop)
	return nil
}
