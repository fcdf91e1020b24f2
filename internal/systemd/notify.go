// Package systemd reports the capture service's state to the service
// manager over the sd_notify socket.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/camcore/internal/events"
	"github.com/smazurov/camcore/internal/logging"
)

// NotifyFunc sends one sd_notify state string. It reports false when no
// notify socket is configured.
type NotifyFunc func(state string) (bool, error)

// Progress returns a counter that increases while capture is healthy.
type Progress func() uint64

// Notifier translates session events into READY, STOPPING and STATUS
// notifications, and pings the watchdog while frames keep arriving.
type Notifier struct {
	notify   NotifyFunc
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	streaming bool
	unsubs    []func()
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithNotifyFunc replaces daemon.SdNotify. Tests use it to record states.
func WithNotifyFunc(fn NotifyFunc) Option {
	return func(n *Notifier) { n.notify = fn }
}

// WithWatchdogInterval overrides the interval read from WATCHDOG_USEC. Zero
// disables the watchdog.
func WithWatchdogInterval(d time.Duration) Option {
	return func(n *Notifier) { n.interval = d }
}

// NewNotifier creates a notifier. The watchdog runs at half the interval
// systemd asked for.
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		logger: logging.GetLogger("systemd"),
	}
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		n.interval = interval / 2
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start subscribes to session events on bus. When a watchdog interval is
// set, progress is sampled every interval and WATCHDOG=1 is sent only if it
// advanced while streaming, so a stalled device gets the service restarted.
func (n *Notifier) Start(ctx context.Context, bus *events.Bus, progress Progress) {
	n.mu.Lock()
	n.unsubs = append(n.unsubs,
		bus.Subscribe(func(e events.SessionStateChangedEvent) { n.onState(e) }),
		bus.Subscribe(func(e events.SessionErrorEvent) {
			n.send(fmt.Sprintf("STATUS=%s failed: %s", e.Phase, e.Error))
		}),
	)
	n.mu.Unlock()

	if n.interval <= 0 || progress == nil {
		return
	}

	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})
	go n.watchdog(ctx, progress)
	n.logger.Info("Watchdog enabled", "interval", n.interval)
}

// Stop unsubscribes and ends the watchdog loop.
func (n *Notifier) Stop() {
	n.mu.Lock()
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}

	if n.cancel != nil {
		n.cancel()
		<-n.done
		n.cancel = nil
	}
}

func (n *Notifier) onState(e events.SessionStateChangedEvent) {
	n.mu.Lock()
	n.streaming = e.To == "streaming"
	n.mu.Unlock()

	switch e.To {
	case "streaming":
		n.send(daemon.SdNotifyReady)
		n.send("STATUS=Streaming from " + e.DevicePath)
	case "stopped":
		n.send(daemon.SdNotifyStopping)
	}
}

func (n *Notifier) watchdog(ctx context.Context, progress Progress) {
	defer close(n.done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	last := progress()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := progress()
			n.mu.Lock()
			healthy := n.streaming && current != last
			n.mu.Unlock()
			last = current

			if healthy {
				n.send(daemon.SdNotifyWatchdog)
			} else {
				n.logger.Warn("Capture made no progress, withholding watchdog ping", "frames", current)
			}
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify", "state", state)
	}
}
