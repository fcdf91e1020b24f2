package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camcore/internal/events"
)

// eventTypes maps SSE event names to payloads for the OpenAPI document.
var eventTypes = map[string]any{
	"session-state":  events.SessionStateChangedEvent{},
	"session-error":  events.SessionErrorEvent{},
	"frame-dropped":  events.FrameDroppedEvent{},
	"device-changed": events.DeviceChangedEvent{},
}

func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "capture-events",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Capture Events",
		Description: "Server-sent stream of session state changes, session errors, dropped frames and device changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		bus := s.options.EventBus
		unsubs := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.SessionErrorEvent](bus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](bus, eventCh),
			events.SubscribeToChannel[events.DeviceChangedEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()

		// Current state first so clients need not poll /api/session.
		if s.options.Session != nil {
			stats := s.options.Session.Stats()
			if err := send.Data(events.SessionStateChangedEvent{
				DevicePath: s.options.DevicePath,
				From:       stats.State.String(),
				To:         stats.State.String(),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
