package capture

import "errors"

// Setup errors. Each one is fatal to the session; the streaming loop is never
// entered.
var (
	ErrDeviceOpen      = errors.New("capture: device open failed")
	ErrFormatRejected  = errors.New("capture: format rejected")
	ErrBufferRequest   = errors.New("capture: buffer request failed")
	ErrMapping         = errors.New("capture: buffer mapping failed")
	ErrStreamStart     = errors.New("capture: stream start failed")
	ErrInvalidGeometry = errors.New("capture: invalid capture geometry")
)

// Steady-state errors. They end the streaming loop and run the same teardown
// as a normal stop.
var (
	ErrDequeue = errors.New("capture: dequeue failed")
	ErrRequeue = errors.New("capture: requeue failed")
)

// ErrSessionRunning is returned when a session is started twice.
var ErrSessionRunning = errors.New("capture: session already started")

// phaseOf names the capture phase an error belongs to, for logs, events and
// metrics labels.
func phaseOf(err error) string {
	switch {
	case errors.Is(err, ErrDeviceOpen):
		return "open"
	case errors.Is(err, ErrFormatRejected):
		return "format"
	case errors.Is(err, ErrBufferRequest):
		return "buffers"
	case errors.Is(err, ErrMapping):
		return "mapping"
	case errors.Is(err, ErrStreamStart):
		return "stream_start"
	case errors.Is(err, ErrDequeue):
		return "dequeue"
	case errors.Is(err, ErrRequeue):
		return "requeue"
	default:
		return "unknown"
	}
}
