// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format queries, and multi-planar MMAP streaming.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Streaming
//
// OpenCapture returns a CaptureDevice that exposes the individual streaming
// ioctls (S_FMT, REQBUFS, QUERYBUF, QBUF, DQBUF, STREAMON, STREAMOFF) and the
// mmap of driver buffers. Sequencing them into a capture session is left to
// the caller:
//
//	dev, _ := v4l2.OpenCapture("/dev/video11")
//	got, _ := dev.SetFormatMplane(v4l2.MplaneFormat{
//	    Width: 1056, Height: 784, PixelFormat: v4l2.PixFmtNV12, NumPlanes: 2,
//	})
//	n, _ := dev.RequestBuffers(4)
//	for i := uint32(0); i < n; i++ {
//	    p, _ := dev.QueryBuffer(i)
//	    mem, _ := dev.Map(p.Offset, p.Length)
//	    _ = dev.Queue(i)
//	}
//	_ = dev.StreamOn()
//	buf, _ := dev.Dequeue() // blocks until the driver fills a buffer
//
// Dequeue blocks; the device is opened without O_NONBLOCK. Interrupted
// ioctls (EINTR) are restarted transparently.
package v4l2
