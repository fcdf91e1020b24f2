package api

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camcore/internal/api/models"
)

// SnapshotInput optionally overrides the JPEG quality.
type SnapshotInput struct {
	Quality int `query:"quality" minimum:"1" maximum:"100" example:"85" doc:"JPEG quality, server default when omitted"`
}

func (s *Server) registerSnapshotRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/snapshot.jpg",
		Summary:     "Latest Frame",
		Description: "Get the most recent full frame as JPEG",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, input *SnapshotInput) (*models.ImageResponse, error) {
		f, ok := s.options.Snapshot.Frame()
		if !ok {
			return nil, huma.Error503ServiceUnavailable("No frame captured yet")
		}
		return s.encodeJPEG(f, input.Quality)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-crop",
		Method:      http.MethodGet,
		Path:        "/api/crop.jpg",
		Summary:     "Latest Inference Crop",
		Description: "Get the most recent centered square crop as JPEG",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, input *SnapshotInput) (*models.ImageResponse, error) {
		c, ok := s.options.Snapshot.Crop()
		if !ok {
			return nil, huma.Error503ServiceUnavailable("No crop produced yet")
		}
		return s.encodeJPEG(c.Frame, input.Quality)
	})
}

func (s *Server) encodeJPEG(img image.Image, quality int) (*models.ImageResponse, error) {
	if quality == 0 {
		quality = s.options.JPEGQuality
	}
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode JPEG", err)
	}
	return &models.ImageResponse{
		ContentType:  "image/jpeg",
		CacheControl: "no-store",
		Body:         buf.Bytes(),
	}, nil
}
