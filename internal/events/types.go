package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeSessionError
	TypeFrameDropped
	TypeDeviceChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every capture state transition.
type SessionStateChangedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video11" doc:"Path to the capture device"`
	From       string `json:"from" example:"idle" doc:"Previous state"`
	To         string `json:"to" example:"streaming" doc:"New state"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// SessionErrorEvent is published when a session fails during setup or stops
// on a streaming error.
type SessionErrorEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video11" doc:"Path to the capture device"`
	Phase      string `json:"phase" example:"dequeue" doc:"Capture phase that failed"`
	Error      string `json:"error" example:"VIDIOC_DQBUF: input/output error" doc:"Error description"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for SessionErrorEvent.
func (e SessionErrorEvent) Type() uint32 { return TypeSessionError }

// FrameDroppedEvent is published when a dequeued buffer could not be turned
// into a frame.
type FrameDroppedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video11" doc:"Path to the capture device"`
	Index      uint32 `json:"index" example:"2" doc:"Driver buffer index"`
	Sequence   uint32 `json:"sequence" example:"1024" doc:"Driver frame sequence number"`
	Reason     string `json:"reason" example:"short buffer" doc:"Why the frame was dropped"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Drop timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// DeviceChangedEvent is published when a V4L2 capture device appears,
// disappears or changes.
type DeviceChangedEvent struct {
	Action     string `json:"action" example:"removed" doc:"One of added, removed, changed"`
	DevicePath string `json:"device_path" example:"/dev/video11" doc:"Path to the capture device"`
	DeviceName string `json:"device_name" example:"rkisp_mainpath" doc:"Card name reported by the driver"`
	DeviceID   string `json:"device_id" example:"platform-rkisp-vir0-video-index0" doc:"Stable device identifier"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }
