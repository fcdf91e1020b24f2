package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camcore/internal/api/models"
	"github.com/smazurov/camcore/internal/devices"
)

// DeviceFormatsInput selects the device whose formats are listed.
type DeviceFormatsInput struct {
	Device string `query:"device" required:"true" example:"/dev/video11" doc:"Device path or stable identifier"`
}

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List V4L2 video nodes that can capture",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		found, err := s.options.Detector.FindDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate devices", err)
		}

		list := make([]models.DeviceInfo, len(found))
		for i, dev := range found {
			list[i] = models.DeviceInfo{
				DevicePath: dev.DevicePath,
				DeviceName: dev.DeviceName,
				DeviceID:   dev.DeviceID,
				Caps:       dev.Caps,
				Mplane:     dev.Mplane,
			}
		}
		return &models.DevicesResponse{
			Body: models.DevicesData{Devices: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-device-formats",
		Method:      http.MethodGet,
		Path:        "/api/devices/formats",
		Summary:     "Device Formats",
		Description: "List the pixel formats and frame sizes a device advertises",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, input *DeviceFormatsInput) (*models.DeviceFormatsResponse, error) {
		path, err := devices.ResolveDevicePath(input.Device)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}

		formats, err := s.options.Detector.GetDeviceFormats(path)
		if err != nil {
			if errors.Is(err, devices.ErrUnsupported) {
				return nil, huma.Error501NotImplemented(err.Error())
			}
			return nil, huma.Error500InternalServerError("Failed to query formats", err)
		}

		out := make([]models.FormatInfo, len(formats))
		for i, f := range formats {
			out[i] = models.FormatInfo{
				PixelFormat: f.PixelFormat,
				FourCC:      f.FourCC,
				FormatName:  f.FormatName,
				Emulated:    f.Emulated,
			}
			resolutions, err := s.options.Detector.GetDeviceResolutions(path, f.PixelFormat)
			if err != nil {
				s.logger.Debug("Failed to query resolutions", "device", path, "fourcc", f.FourCC, "error", err)
				continue
			}
			for _, r := range resolutions {
				out[i].Resolutions = append(out[i].Resolutions, fmt.Sprintf("%dx%d", r.Width, r.Height))
			}
		}

		return &models.DeviceFormatsResponse{
			Body: models.DeviceFormatsData{DevicePath: path, Formats: out},
		}, nil
	})
}
