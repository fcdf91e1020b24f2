package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/camcore/internal/events"
	"github.com/smazurov/camcore/internal/frame"
	"github.com/smazurov/camcore/internal/metrics"
)

// State is the lifecycle state of a Session.
type State int32

// Session states. A session moves forward only.
const (
	StateIdle State = iota
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config describes the capture a Session performs.
type Config struct {
	DevicePath   string
	Width        int
	Height       int
	BufferCount  int
	StrictFormat bool
}

// DefaultConfig returns the configuration of the rkisp main path at its
// 1056x784 binned mode.
func DefaultConfig() Config {
	return Config{
		DevicePath:   "/dev/video11",
		Width:        1056,
		Height:       784,
		BufferCount:  4,
		StrictFormat: true,
	}
}

// Stats is a snapshot of a session's counters.
type Stats struct {
	State        State
	Format       DeviceFormat
	Captured     uint64
	Published    uint64
	Dropped      uint64
	LastSequence uint32
}

// Option configures a Session.
type Option func(*Session)

// WithOpener replaces the device opener. Tests use it to inject fakes.
func WithOpener(open Opener) Option {
	return func(s *Session) { s.open = open }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Session) { s.bus = bus }
}

// WithDisplaySink appends a display sink. Sinks are called in the order they
// were added.
func WithDisplaySink(sink DisplaySink) Option {
	return func(s *Session) { s.display = append(s.display, sink) }
}

// WithInferenceSink attaches the inference sink. Without one no crop is made.
func WithInferenceSink(sink InferenceSink) Option {
	return func(s *Session) { s.inference = sink }
}

// Session streams frames from one capture device to its sinks. A session
// runs once; create a new one to capture again.
type Session struct {
	cfg       Config
	open      Opener
	logger    *slog.Logger
	bus       *events.Bus
	display   []DisplaySink
	inference InferenceSink
	dist      *Distributor

	started atomic.Bool
	state   atomic.Int32

	mu     sync.Mutex
	format DeviceFormat
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	captured  atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	lastSeq   atomic.Uint32
}

// NewSession validates cfg and builds an idle session.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		open:   OpenV4L2,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, cfg.Width, cfg.Height)
	}
	if s.inference != nil && cfg.Width < cfg.Height {
		return nil, fmt.Errorf("%w: square crop needs width >= height, got %dx%d",
			ErrInvalidGeometry, cfg.Width, cfg.Height)
	}
	if cfg.BufferCount <= 0 {
		return nil, fmt.Errorf("%w: buffer count %d", ErrBufferRequest, cfg.BufferCount)
	}

	s.logger = s.logger.With("device", cfg.DevicePath)
	s.dist = NewDistributor(s.inference, s.display...)
	metrics.SetSessionState(cfg.DevicePath, int(StateIdle))
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	format := s.format
	s.mu.Unlock()
	return Stats{
		State:        s.State(),
		Format:       format,
		Captured:     s.captured.Load(),
		Published:    s.published.Load(),
		Dropped:      s.dropped.Load(),
		LastSequence: s.lastSeq.Load(),
	}
}

// Start runs the session on its own goroutine, locked to an OS thread.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer cancel()
		_ = s.run(ctx)
	}()
	return nil
}

// Run streams on the calling goroutine until ctx is cancelled or a capture
// error stops the loop. A cancelled context returns nil.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return s.run(ctx)
}

// Stop cancels the session and waits for teardown. A blocked dequeue is not
// interrupted, so Stop returns after at most one more frame. Calling Stop on
// a stopped or never started session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-s.done
	return s.Err()
}

// Done is closed once teardown has completed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) run(ctx context.Context) (err error) {
	var (
		dev  Device
		pool *BufferPool
	)

	defer func() {
		s.teardown(dev, pool)
		if err != nil {
			s.fail(err)
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.setState(StateStopped)
		close(s.done)
	}()

	dev, format, err := Negotiate(s.open, s.cfg.DevicePath, Request{
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
		Strict: s.cfg.StrictFormat,
	}, s.logger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.format = format
	s.mu.Unlock()

	pool, err = AllocatePool(dev, s.cfg.BufferCount, s.logger)
	if err != nil {
		return err
	}
	metrics.SetBuffersMapped(s.cfg.DevicePath, pool.Mapped())

	if err := dev.StreamOn(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	s.setState(StateStreaming)
	s.logger.Info("Streaming started",
		"width", format.Width,
		"height", format.Height,
		"buffers", pool.Len(),
		"inference", s.dist.HasInference())

	layout := format.Layout()
	for {
		if err := s.cycle(dev, pool, layout); err != nil {
			return err
		}
		if ctx.Err() != nil {
			s.logger.Info("Stop requested", "frames", s.published.Load())
			return nil
		}
	}
}

// cycle runs one dequeue, convert, publish, requeue round.
func (s *Session) cycle(dev Device, pool *BufferPool, layout frame.Layout) error {
	d, err := dev.Dequeue()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDequeue, err)
	}
	buf, err := pool.Acquire(d)
	if err != nil {
		return err
	}
	s.captured.Add(1)
	s.lastSeq.Store(d.Sequence)
	metrics.IncFramesCaptured(s.cfg.DevicePath)

	data := buf.Data
	if d.BytesUsed > 0 && int(d.BytesUsed) <= len(data) {
		data = data[:d.BytesUsed]
	}

	start := time.Now()
	f, err := frame.ConvertNV12(data, layout)
	metrics.ObserveConvert(s.cfg.DevicePath, time.Since(start))
	if err != nil {
		s.drop(d.Index, d.Sequence, err)
	} else if err := s.dist.Publish(f); err != nil {
		s.drop(d.Index, d.Sequence, err)
	} else {
		s.published.Add(1)
		metrics.IncFramesPublished(s.cfg.DevicePath)
	}

	// The frame is a copy; the buffer can go back to the driver now.
	return pool.Requeue(buf)
}

func (s *Session) drop(index, sequence uint32, err error) {
	s.dropped.Add(1)
	reason := "convert"
	if errors.Is(err, frame.ErrShortBuffer) {
		reason = "short_buffer"
	} else if errors.Is(err, frame.ErrInvalidGeometry) {
		reason = "geometry"
	}
	metrics.IncFramesDropped(s.cfg.DevicePath, reason)
	s.logger.Warn("Dropped frame", "index", index, "sequence", sequence, "error", err)
	if s.bus != nil {
		s.bus.Publish(events.FrameDroppedEvent{
			DevicePath: s.cfg.DevicePath,
			Index:      index,
			Sequence:   sequence,
			Reason:     reason,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}

// teardown releases whatever setup acquired: stream off, unmap, close.
func (s *Session) teardown(dev Device, pool *BufferPool) {
	if dev == nil {
		return
	}
	if err := dev.StreamOff(); err != nil {
		s.logger.Debug("VIDIOC_STREAMOFF during teardown", "error", err)
	}
	if pool != nil {
		if err := pool.Release(); err != nil {
			s.logger.Warn("Unmapping buffers", "error", err)
		}
		metrics.SetBuffersMapped(s.cfg.DevicePath, pool.Mapped())
	}
	if err := dev.Close(); err != nil {
		s.logger.Warn("Closing device", "error", err)
	}
	s.logger.Info("Capture torn down",
		"captured", s.captured.Load(),
		"published", s.published.Load(),
		"dropped", s.dropped.Load())
}

func (s *Session) fail(err error) {
	phase := phaseOf(err)
	s.logger.Error("Capture failed", "phase", phase, "error", err)
	metrics.IncSessionErrors(s.cfg.DevicePath, phase)
	if s.bus != nil {
		s.bus.Publish(events.SessionErrorEvent{
			DevicePath: s.cfg.DevicePath,
			Phase:      phase,
			Error:      err.Error(),
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}

func (s *Session) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	metrics.SetSessionState(s.cfg.DevicePath, int(to))
	s.logger.Info("Session state changed", "from", from, "to", to)
	if s.bus != nil {
		s.bus.Publish(events.SessionStateChangedEvent{
			DevicePath: s.cfg.DevicePath,
			From:       from.String(),
			To:         to.String(),
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}
