package capture

import (
	"sync"

	"github.com/smazurov/camcore/internal/frame"
)

// Snapshot keeps the most recent frame and crop for readers on other
// goroutines. It implements both DisplaySink and InferenceSink.
//
// Frames handed to sinks are freshly converted every cycle, so the latest one
// is retained without copying.
type Snapshot struct {
	mu       sync.RWMutex
	frame    frame.Frame
	crop     frame.CroppedFrame
	hasFrame bool
	hasCrop  bool
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// OnFrame implements DisplaySink.
func (s *Snapshot) OnFrame(f frame.Frame) {
	s.mu.Lock()
	s.frame = f
	s.hasFrame = true
	s.mu.Unlock()
}

// OnCroppedFrame implements InferenceSink.
func (s *Snapshot) OnCroppedFrame(f frame.CroppedFrame) {
	s.mu.Lock()
	s.crop = f
	s.hasCrop = true
	s.mu.Unlock()
}

// Frame returns the latest full frame, if any.
func (s *Snapshot) Frame() (frame.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.hasFrame
}

// Crop returns the latest inference crop, if any.
func (s *Snapshot) Crop() (frame.CroppedFrame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.crop, s.hasCrop
}
