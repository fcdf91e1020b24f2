package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/camcore/internal/frame"
	"github.com/smazurov/camcore/pkg/linuxav/v4l2"
)

// requestedPlanes is the plane count asked of the driver: luma and
// interleaved chroma.
const requestedPlanes = 2

// DeviceFormat is the capture format fixed for a session.
type DeviceFormat struct {
	Width        int
	Height       int
	PixelFormat  uint32
	Planes       int
	BytesPerLine int
	SizeImage    int
}

// Layout returns the NV12 memory layout of one captured buffer.
func (f DeviceFormat) Layout() frame.Layout {
	return frame.Layout{Width: f.Width, Height: f.Height, Stride: f.BytesPerLine}
}

// Request is what the negotiator asks the driver for.
type Request struct {
	Width  int
	Height int
	// Strict re-reads the format after setting it and rejects any change to
	// the geometry or pixel format. It also requires multi-planar capture
	// support. Without it the request is trusted as sent.
	Strict bool
}

// Negotiate opens the device and fixes the NV12 multi-planar capture format.
// On success the caller owns the returned device. On failure the device is
// already closed.
func Negotiate(open Opener, path string, req Request, logger *slog.Logger) (Device, DeviceFormat, error) {
	dev, err := open(path)
	if err != nil {
		return nil, DeviceFormat{}, fmt.Errorf("%w: %s: %w", ErrDeviceOpen, path, err)
	}

	format, err := negotiate(dev, req, logger)
	if err != nil {
		if closeErr := dev.Close(); closeErr != nil {
			logger.Debug("Close after failed negotiation", "error", closeErr)
		}
		return nil, DeviceFormat{}, err
	}
	return dev, format, nil
}

func negotiate(dev Device, req Request, logger *slog.Logger) (DeviceFormat, error) {
	if req.Strict {
		capability, err := dev.Capability()
		if err != nil {
			return DeviceFormat{}, fmt.Errorf("%w: query capabilities: %w", ErrDeviceOpen, err)
		}
		logger.Info("Device capabilities",
			"driver", capability.Driver,
			"card", capability.Card,
			"bus", capability.BusInfo,
			"mplane", capability.SupportsCaptureMplane(),
			"streaming", capability.SupportsStreaming())
		if !capability.SupportsCaptureMplane() {
			return DeviceFormat{}, fmt.Errorf("%w: not a multi-planar capture device", ErrDeviceOpen)
		}
	}

	want := v4l2.MplaneFormat{
		Width:       uint32(req.Width),
		Height:      uint32(req.Height),
		PixelFormat: v4l2.PixFmtNV12,
		NumPlanes:   requestedPlanes,
	}
	set, err := dev.SetFormatMplane(want)
	if err != nil {
		return DeviceFormat{}, fmt.Errorf("%w: %w", ErrFormatRejected, err)
	}

	if !req.Strict {
		logger.Debug("Format accepted without re-validation", "width", req.Width, "height", req.Height)
		return DeviceFormat{
			Width:       req.Width,
			Height:      req.Height,
			PixelFormat: v4l2.PixFmtNV12,
			Planes:      requestedPlanes,
		}, nil
	}

	got, err := dev.GetFormatMplane()
	if err != nil {
		// Fall back to what S_FMT wrote back.
		logger.Debug("VIDIOC_G_FMT failed, using S_FMT result", "error", err)
		got = set
	}
	logNegotiated(logger, got)

	if err := checkNegotiated(want, got); err != nil {
		return DeviceFormat{}, err
	}

	format := DeviceFormat{
		Width:       int(got.Width),
		Height:      int(got.Height),
		PixelFormat: got.PixelFormat,
		Planes:      int(got.NumPlanes),
	}
	if len(got.Planes) > 0 {
		format.BytesPerLine = int(got.Planes[0].BytesPerLine)
		format.SizeImage = int(got.Planes[0].SizeImage)
	}
	if format.BytesPerLine != 0 && format.BytesPerLine < format.Width {
		return DeviceFormat{}, fmt.Errorf("%w: bytesperline %d below width %d",
			ErrFormatRejected, format.BytesPerLine, format.Width)
	}
	return format, nil
}

// checkNegotiated compares the driver's answer with the request. A different
// plane count is accepted: most drivers report NV12 as one contiguous plane.
func checkNegotiated(want, got v4l2.MplaneFormat) error {
	var errs []error
	if got.Width != want.Width || got.Height != want.Height {
		errs = append(errs, fmt.Errorf("geometry %dx%d, requested %dx%d",
			got.Width, got.Height, want.Width, want.Height))
	}
	if got.PixelFormat != want.PixelFormat {
		errs = append(errs, fmt.Errorf("pixel format %s, requested %s",
			v4l2.FormatFourCC(got.PixelFormat), v4l2.FormatFourCC(want.PixelFormat)))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: driver adjusted format: %w", ErrFormatRejected, errors.Join(errs...))
}

func logNegotiated(logger *slog.Logger, f v4l2.MplaneFormat) {
	logger.Info("Driver accepted format",
		"width", f.Width,
		"height", f.Height,
		"pixel_format", v4l2.FormatFourCC(f.PixelFormat),
		"planes", f.NumPlanes)
	for i, p := range f.Planes {
		logger.Debug("Plane format", "plane", i, "sizeimage", p.SizeImage, "bytesperline", p.BytesPerLine)
	}
}
