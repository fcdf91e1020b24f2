// Package metrics provides Prometheus metrics for capture sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "frames_captured_total",
		Help:      "Buffers dequeued from the driver",
	}, []string{"device"})

	framesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "frames_published_total",
		Help:      "Frames delivered to sinks",
	}, []string{"device"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "frames_dropped_total",
		Help:      "Dequeued buffers that could not be converted",
	}, []string{"device", "reason"})

	sessionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "session_errors_total",
		Help:      "Sessions ended by an error, by phase",
	}, []string{"device", "phase"})

	convertSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "convert_seconds",
		Help:      "NV12 to RGB conversion time",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .02, .04, .08},
	}, []string{"device"})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "session_state",
		Help:      "Capture session state (0 idle, 1 streaming, 2 stopped)",
	}, []string{"device"})

	buffersMapped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camcore",
		Subsystem: "capture",
		Name:      "buffers_mapped",
		Help:      "Driver buffers currently mapped",
	}, []string{"device"})
)

// IncFramesCaptured counts a dequeued buffer.
func IncFramesCaptured(device string) {
	framesCaptured.WithLabelValues(device).Inc()
}

// IncFramesPublished counts a frame handed to the sinks.
func IncFramesPublished(device string) {
	framesPublished.WithLabelValues(device).Inc()
}

// IncFramesDropped counts a dropped frame.
func IncFramesDropped(device, reason string) {
	framesDropped.WithLabelValues(device, reason).Inc()
}

// IncSessionErrors counts a session that ended with an error.
func IncSessionErrors(device, phase string) {
	sessionErrors.WithLabelValues(device, phase).Inc()
}

// ObserveConvert records how long one frame conversion took.
func ObserveConvert(device string, d time.Duration) {
	convertSeconds.WithLabelValues(device).Observe(d.Seconds())
}

// SetSessionState sets the state gauge.
func SetSessionState(device string, state int) {
	sessionState.WithLabelValues(device).Set(float64(state))
}

// SetBuffersMapped sets the number of mapped buffers.
func SetBuffersMapped(device string, n int) {
	buffersMapped.WithLabelValues(device).Set(float64(n))
}

// DeleteCaptureMetrics removes all series for a device.
func DeleteCaptureMetrics(device string) {
	framesCaptured.DeleteLabelValues(device)
	framesPublished.DeleteLabelValues(device)
	framesDropped.DeletePartialMatch(prometheus.Labels{"device": device})
	sessionErrors.DeletePartialMatch(prometheus.Labels{"device": device})
	convertSeconds.DeleteLabelValues(device)
	sessionState.DeleteLabelValues(device)
	buffersMapped.DeleteLabelValues(device)
}
