package devices

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/camcore/internal/events"
	"github.com/smazurov/camcore/internal/logging"
)

// Change actions carried by events.DeviceChangedEvent.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
	ActionChanged = "changed"
)

// Change is one difference between two device scans.
type Change struct {
	Action string
	Device DeviceInfo
}

// Monitor watches the device directory for video nodes being created or
// removed, rescans on every burst of changes and publishes the differences.
type Monitor struct {
	detector Detector
	bus      *events.Bus
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	last map[string]DeviceInfo // key is DeviceID

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDir watches dir instead of /dev.
func WithDir(dir string) MonitorOption {
	return func(m *Monitor) { m.dir = dir }
}

// WithMonitorDebounce sets how long the monitor waits for a burst of node
// changes to settle before rescanning.
func WithMonitorDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.debounce = d }
}

// NewMonitor creates a monitor. Changes are published on bus.
func NewMonitor(detector Detector, bus *events.Bus, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		detector: detector,
		bus:      bus,
		dir:      "/dev",
		debounce: 500 * time.Millisecond,
		logger:   logging.GetLogger("devices"),
		last:     make(map[string]DeviceInfo),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start records the current devices and begins watching.
func (m *Monitor) Start(ctx context.Context) error {
	devices, err := m.detector.FindDevices()
	if err != nil {
		m.logger.Warn("Failed to get initial device list", "error", err)
	} else {
		m.mu.Lock()
		for _, dev := range devices {
			m.last[dev.DeviceID] = dev
		}
		m.mu.Unlock()
		m.logger.Info("Initialized with V4L2 devices", "count", len(devices))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return err
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.watcher = watcher
	m.done = make(chan struct{})
	go m.watch(ctx)

	m.logger.Info("Device monitoring started", "dir", m.dir)
	return nil
}

// Stop ends watching and waits for the watch loop to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.watcher.Close()
	<-m.done
	m.cancel = nil
}

// Devices returns the devices seen by the last scan.
func (m *Monitor) Devices() []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeviceInfo, 0, len(m.last))
	for _, dev := range m.last {
		out = append(out, dev)
	}
	return out
}

func (m *Monitor) watch(ctx context.Context) {
	defer close(m.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Device monitor stopped")
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !isVideoNode(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			m.logger.Debug("Video node event", "name", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(m.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			m.Rescan()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Device monitor error", "error", err)
		}
	}
}

// Rescan compares the current devices against the last scan and publishes
// one event per difference.
func (m *Monitor) Rescan() []Change {
	devices, err := m.detector.FindDevices()
	if err != nil {
		m.logger.Error("Error getting device data", "error", err)
		return nil
	}

	current := make(map[string]DeviceInfo, len(devices))
	for _, dev := range devices {
		current[dev.DeviceID] = dev
	}

	m.mu.Lock()
	changes := diffDevices(m.last, current)
	m.last = current
	m.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	for _, c := range changes {
		m.logger.Info("Device "+c.Action,
			"device", c.Device.DevicePath, "name", c.Device.DeviceName, "id", c.Device.DeviceID)
		if m.bus != nil {
			m.bus.Publish(events.DeviceChangedEvent{
				Action:     c.Action,
				DevicePath: c.Device.DevicePath,
				DeviceName: c.Device.DeviceName,
				DeviceID:   c.Device.DeviceID,
				Timestamp:  now,
			})
		}
	}
	return changes
}

// diffDevices lists removals first, then additions and changes.
func diffDevices(old, current map[string]DeviceInfo) []Change {
	var changes []Change
	for id, dev := range old {
		if _, ok := current[id]; !ok {
			changes = append(changes, Change{Action: ActionRemoved, Device: dev})
		}
	}
	for id, dev := range current {
		prev, ok := old[id]
		switch {
		case !ok:
			changes = append(changes, Change{Action: ActionAdded, Device: dev})
		case prev != dev:
			changes = append(changes, Change{Action: ActionChanged, Device: dev})
		}
	}
	return changes
}

func isVideoNode(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "video")
}
