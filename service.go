package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camcore/internal/api"
	"github.com/smazurov/camcore/internal/capture"
	"github.com/smazurov/camcore/internal/config"
	"github.com/smazurov/camcore/internal/devices"
	"github.com/smazurov/camcore/internal/events"
	"github.com/smazurov/camcore/internal/logging"
	"github.com/smazurov/camcore/internal/metrics/exporters"
	"github.com/smazurov/camcore/internal/systemd"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// service owns every long-running part of the capture daemon.
type service struct {
	opts       *Options
	devicePath string
	logger     *slog.Logger

	bus      *events.Bus
	session  *capture.Session
	monitor  *devices.Monitor
	notifier *systemd.Notifier
	watcher  *config.Watcher[Options]
	server   *api.Server

	unsubs       []func()
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

func newService(opts *Options, root *cobra.Command, logger *slog.Logger) (*service, error) {
	devicePath, err := devices.ResolveDevicePath(opts.CaptureDevice)
	if err != nil {
		return nil, err
	}

	bus := events.New()
	snapshot := capture.NewSnapshot()

	sessionOpts := []capture.Option{
		capture.WithLogger(logging.GetLogger("capture")),
		capture.WithEventBus(bus),
		capture.WithDisplaySink(snapshot),
	}
	if opts.CaptureInference {
		sessionOpts = append(sessionOpts, capture.WithInferenceSink(snapshot))
	}

	session, err := capture.NewSession(capture.Config{
		DevicePath:   devicePath,
		Width:        opts.CaptureWidth,
		Height:       opts.CaptureHeight,
		BufferCount:  opts.CaptureBuffers,
		StrictFormat: opts.CaptureStrictFormat,
	}, sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("capture session: %w", err)
	}

	detector := devices.NewDetector()
	ctx, cancel := context.WithCancel(context.Background())

	s := &service{
		opts:       opts,
		devicePath: devicePath,
		logger:     logger,
		bus:        bus,
		session:    session,
		monitor:    devices.NewMonitor(detector, bus),
		notifier:   systemd.NewNotifier(),
		ctx:        ctx,
		cancel:     cancel,
	}

	if opts.Config != "" {
		s.watcher = config.NewConfigWatcher(opts.Config, func(string) (Options, error) {
			next := *opts
			err := config.LoadConfig(&next, root)
			return next, err
		}, logging.GetLogger("config"))
	}

	if opts.ServerAddr != "" {
		s.server = api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			DevicePath:        devicePath,
			Inference:         opts.CaptureInference,
			Session:           session,
			Snapshot:          snapshot,
			Detector:          detector,
			EventBus:          bus,
			JPEGQuality:       opts.ServerJPEGQuality,
			PrometheusHandler: exporters.HTTPHandler(),
		})
	}

	return s, nil
}

// run starts everything and blocks until the capture session ends. The
// returned error is the one that ended the session, nil after shutdown.
func (s *service) run() error {
	s.notifier.Start(s.ctx, s.bus, func() uint64 { return s.session.Stats().Captured })

	s.unsubs = append(s.unsubs, s.bus.Subscribe(func(e events.DeviceChangedEvent) {
		if e.DevicePath == s.devicePath && e.Action == devices.ActionRemoved {
			s.logger.Warn("Capture device removed", "device", e.DevicePath, "name", e.DeviceName)
		}
	}))
	if err := s.monitor.Start(s.ctx); err != nil {
		s.logger.Warn("Failed to start device monitoring", "error", err)
	}

	if s.watcher != nil {
		s.unsubs = append(s.unsubs, s.watcher.OnReload(s.reload))
		if err := s.watcher.Start(); err != nil {
			s.logger.Warn("Failed to watch config file", "path", s.opts.Config, "error", err)
		}
	}

	if s.server != nil {
		go func() {
			if err := s.server.Start(s.opts.ServerAddr); err != nil {
				s.logger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	if err := s.session.Start(s.ctx); err != nil {
		return err
	}
	<-s.session.Done()
	return s.session.Err()
}

// reload applies a changed config file. Log levels change in place; capture
// and server settings need a restart.
func (s *service) reload(next Options) {
	logging.Initialize(loggingConfig(&next))

	if next.CaptureDevice != s.opts.CaptureDevice ||
		next.CaptureWidth != s.opts.CaptureWidth ||
		next.CaptureHeight != s.opts.CaptureHeight ||
		next.CaptureBuffers != s.opts.CaptureBuffers ||
		next.CaptureStrictFormat != s.opts.CaptureStrictFormat ||
		next.CaptureInference != s.opts.CaptureInference ||
		next.ServerAddr != s.opts.ServerAddr {
		s.logger.Warn("Capture or server settings changed, restart to apply")
	}
}

// shutdown stops the session first so the device is released even if a
// later step hangs.
func (s *service) shutdown() {
	s.shutdownOnce.Do(func() {
		if err := s.session.Stop(); err != nil {
			s.logger.Debug("Session ended with error", "error", err)
		}

		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := s.server.Stop(ctx); err != nil {
				s.logger.Error("Error stopping HTTP server", "error", err)
			}
			cancel()
		}

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Debug("Error stopping config watcher", "error", err)
			}
		}
		s.monitor.Stop()
		s.notifier.Stop()
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.cancel()
	})
}
