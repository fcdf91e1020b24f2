//go:build linux && arm && !arm64

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Compile-time struct size assertions for 32-bit ARM.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
	_ [192]byte = [unsafe.Sizeof(v4l2PixFormatMplane{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2RequestBuffers{})]byte{}
	_ [60]byte  = [unsafe.Sizeof(v4l2Plane{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
)

// IOCTL constants for 32-bit ARM.
// v4l2_format, v4l2_plane and v4l2_buffer shrink with the pointer size, so
// their request numbers differ from the 64-bit ones.
const (
	vidiocQuerycap       = 0x80685600
	vidiocEnumFmt        = 0xc0405602
	vidiocGFmt           = 0xc0cc5604
	vidiocSFmt           = 0xc0cc5605
	vidiocReqbufs        = 0xc0145608
	vidiocQuerybuf       = 0xc0445609
	vidiocQbuf           = 0xc044560f
	vidiocDqbuf          = 0xc0445611
	vidiocStreamon       = 0x40045612
	vidiocStreamoff      = 0x40045613
	vidiocEnumFramesizes = 0xc02c564a
)

// v4l2Format has size 204 bytes on 32-bit.
type v4l2Format struct {
	typ uint32    // offset 0
	fmt [200]byte // offset 4
}

// v4l2Plane has size 60 bytes on 32-bit.
type v4l2Plane struct {
	bytesused  uint32     // offset 0
	length     uint32     // offset 4
	m          uint32     // offset 8
	dataOffset uint32     // offset 12
	reserved   [11]uint32 // offset 16
}

// v4l2Buffer has size 68 bytes on 32-bit.
type v4l2Buffer struct {
	index     uint32       // offset 0
	typ       uint32       // offset 4
	bytesused uint32       // offset 8
	flags     uint32       // offset 12
	field     uint32       // offset 16
	timestamp unix.Timeval // offset 20
	timecode  v4l2Timecode // offset 28
	sequence  uint32       // offset 44
	memory    uint32       // offset 48
	m         uint32       // offset 52
	length    uint32       // offset 56
	reserved2 uint32       // offset 60
	requestFD int32        // offset 64
}

func (b *v4l2Buffer) setPlanes(p *v4l2Plane, n uint32) {
	b.m = uint32(uintptr(unsafe.Pointer(p)))
	b.length = n
}

func (p *v4l2Plane) memOffset() uint32 {
	return p.m
}
