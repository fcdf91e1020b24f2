// Package models holds the request and response bodies of the HTTP API.
package models

import "github.com/smazurov/camcore/internal/version"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Version string `json:"version" example:"v0.3.0" doc:"Application version"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// Session models
type FormatData struct {
	Width        int    `json:"width" example:"1056" doc:"Negotiated width in pixels"`
	Height       int    `json:"height" example:"784" doc:"Negotiated height in pixels"`
	PixelFormat  string `json:"pixel_format" example:"NV12" doc:"Negotiated pixel format FourCC"`
	Planes       int    `json:"planes" example:"1" doc:"Number of memory planes"`
	BytesPerLine int    `json:"bytes_per_line" example:"1056" doc:"Luma row stride in bytes"`
	SizeImage    int    `json:"size_image" example:"1241856" doc:"Bytes per buffer reported by the driver"`
}

type SessionData struct {
	DevicePath      string      `json:"device_path" example:"/dev/video11" doc:"Capture device path"`
	State           string      `json:"state" example:"streaming" enum:"idle,streaming,stopped" doc:"Session state"`
	Format          *FormatData `json:"format,omitempty" doc:"Negotiated format, absent before negotiation"`
	FramesCaptured  uint64      `json:"frames_captured" example:"1024" doc:"Buffers dequeued"`
	FramesPublished uint64      `json:"frames_published" example:"1023" doc:"Frames delivered to sinks"`
	FramesDropped   uint64      `json:"frames_dropped" example:"1" doc:"Dequeued buffers that produced no frame"`
	LastSequence    uint32      `json:"last_sequence" example:"1023" doc:"Driver sequence number of the last buffer"`
	Inference       bool        `json:"inference" example:"true" doc:"Whether square crops are produced"`
	Error           string      `json:"error,omitempty" example:"capture: dequeue failed" doc:"Error that ended the session"`
}

type SessionResponse struct {
	Body SessionData
}

// Device models
type DeviceInfo struct {
	DevicePath string `json:"device_path" example:"/dev/video11" doc:"Path to the video node"`
	DeviceName string `json:"device_name" example:"rkisp_mainpath" doc:"Card name reported by the driver"`
	DeviceID   string `json:"device_id" example:"platform-rkisp-vir0-video-index0" doc:"Stable device identifier"`
	Caps       uint32 `json:"caps" example:"69210112" doc:"V4L2 device capability bits"`
	Mplane     bool   `json:"mplane" example:"true" doc:"Supports multi-planar capture"`
}

type DevicesData struct {
	Devices []DeviceInfo `json:"devices" doc:"List of capture devices"`
	Count   int          `json:"count" example:"1" doc:"Number of devices found"`
}

type DevicesResponse struct {
	Body DevicesData
}

type FormatInfo struct {
	PixelFormat uint32   `json:"pixel_format" example:"842094158" doc:"V4L2 pixel format code"`
	FourCC      string   `json:"fourcc" example:"NV12" doc:"Pixel format FourCC"`
	FormatName  string   `json:"format_name" example:"Y/UV 4:2:0" doc:"Driver description"`
	Emulated    bool     `json:"emulated" example:"false" doc:"Format is emulated by libv4l"`
	Resolutions []string `json:"resolutions,omitempty" example:"[\"1056x784\"]" doc:"Advertised frame sizes"`
}

type DeviceFormatsData struct {
	DevicePath string       `json:"device_path" example:"/dev/video11" doc:"Path to the video node"`
	Formats    []FormatInfo `json:"formats" doc:"Supported pixel formats"`
}

type DeviceFormatsResponse struct {
	Body DeviceFormatsData
}

// Logging models
type LoggingData struct {
	Level   string            `json:"level" example:"info" doc:"Global log level"`
	Modules map[string]string `json:"modules" doc:"Effective level per module"`
}

type LoggingResponse struct {
	Body LoggingData
}

type ModuleLevelBody struct {
	Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level for the module"`
}

// Snapshot models
type ImageResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}
