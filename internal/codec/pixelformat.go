// Package codec implements the stateless binary encode/decode routines for
// every RFB 3.8 message this client sends or receives. Every function here
// is pure: given the same bytes it always produces the same value, and vice
// versa. All integers are big-endian on the wire (encoding/binary.BigEndian),
// per RFC 6143 section 6.
package codec

import "encoding/binary"

// PixelFormatSize is the fixed wire size of a PixelFormat record (RFC 6143
// section 7.4).
const PixelFormatSize = 16

// PixelFormat describes how pixel values are encoded on the wire.
type PixelFormat struct {
	BitsPerPixel uint8
	Depth        uint8
	BigEndian    bool
	TrueColor    bool
	RedMax       uint16
	GreenMax     uint16
	BlueMax      uint16
	RedShift     uint8
	GreenShift   uint8
	BlueShift    uint8
	// 3 bytes of padding on the wire; not represented here.
}

// DefaultPixelFormat is the client's default pixel format for
// WriteSetPixelFormat: 32 bpp, 24-bit depth, little-endian, true-color, 8
// bits per channel. The handshake in internal/protocol does not send a
// SetPixelFormat, so the server keeps the format it announced in ServerInit.
func DefaultPixelFormat() PixelFormat {
	return PixelFormat{
		BitsPerPixel: 32,
		Depth:        24,
		BigEndian:    false,
		TrueColor:    true,
		RedMax:       255,
		GreenMax:     255,
		BlueMax:      255,
		RedShift:     0,
		GreenShift:   8,
		BlueShift:    16,
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// encodePixelFormat writes pf's 16-byte wire form into dst, which must be at
// least PixelFormatSize bytes long.
func encodePixelFormat(dst []byte, pf PixelFormat) {
	dst[0] = pf.BitsPerPixel
	dst[1] = pf.Depth
	dst[2] = boolToU8(pf.BigEndian)
	dst[3] = boolToU8(pf.TrueColor)
	binary.BigEndian.PutUint16(dst[4:6], pf.RedMax)
	binary.BigEndian.PutUint16(dst[6:8], pf.GreenMax)
	binary.BigEndian.PutUint16(dst[8:10], pf.BlueMax)
	dst[10] = pf.RedShift
	dst[11] = pf.GreenShift
	dst[12] = pf.BlueShift
	dst[13], dst[14], dst[15] = 0, 0, 0 // padding
}

// decodePixelFormat reads a 16-byte PixelFormat from the front of src.
func decodePixelFormat(src []byte) PixelFormat {
	return PixelFormat{
		BitsPerPixel: src[0],
		Depth:        src[1],
		BigEndian:    src[2] != 0,
		TrueColor:    src[3] != 0,
		RedMax:       binary.BigEndian.Uint16(src[4:6]),
		GreenMax:     binary.BigEndian.Uint16(src[6:8]),
		BlueMax:      binary.BigEndian.Uint16(src[8:10]),
		RedShift:     src[10],
		GreenShift:   src[11],
		BlueShift:    src[12],
	}
}
