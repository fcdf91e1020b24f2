package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camcore/internal/api/models"
	"github.com/smazurov/camcore/internal/capture"
	"github.com/smazurov/camcore/pkg/linuxav/v4l2"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Capture Session",
		Description: "Get the capture session state, negotiated format and frame counters",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})
}

func (s *Server) sessionData() models.SessionData {
	stats := s.options.Session.Stats()
	data := models.SessionData{
		DevicePath:      s.options.DevicePath,
		State:           stats.State.String(),
		FramesCaptured:  stats.Captured,
		FramesPublished: stats.Published,
		FramesDropped:   stats.Dropped,
		LastSequence:    stats.LastSequence,
		Inference:       s.options.Inference,
	}
	if stats.Format != (capture.DeviceFormat{}) {
		data.Format = &models.FormatData{
			Width:        stats.Format.Width,
			Height:       stats.Format.Height,
			PixelFormat:  v4l2.FormatFourCC(stats.Format.PixelFormat),
			Planes:       stats.Format.Planes,
			BytesPerLine: stats.Format.BytesPerLine,
			SizeImage:    stats.Format.SizeImage,
		}
	}
	if err := s.options.Session.Err(); err != nil {
		data.Error = err.Error()
	}
	return data
}
