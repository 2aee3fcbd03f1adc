package codec

import "encoding/binary"

// Client-to-server message types (RFC 6143 section 7.5).
const (
	MsgSetPixelFormat       uint8 = 0
	MsgSetEncodings         uint8 = 2
	MsgFramebufferUpdateReq uint8 = 3
	MsgKeyEvent             uint8 = 4
	MsgPointerEvent         uint8 = 5
	MsgClientCutText        uint8 = 6
)

// Server-to-client message types (RFC 6143 section 7.6).
const (
	MsgFramebufferUpdate  uint8 = 0
	MsgSetColorMapEntries uint8 = 1
	MsgBell               uint8 = 2
	MsgServerCutText      uint8 = 3
)

// EncodingRaw is the only pixel encoding this client ever requests.
const EncodingRaw int32 = 0

// WriteClientInit returns the 1-byte ClientInit record.
func WriteClientInit(shared bool) []byte {
	if shared {
		return []byte{1}
	}
	return []byte{0}
}

// WriteSetPixelFormat returns the 20-byte SetPixelFormat record.
func WriteSetPixelFormat(pf PixelFormat) []byte {
	buf := make([]byte, 4+PixelFormatSize)
	buf[0] = MsgSetPixelFormat
	// buf[1:4] is padding.
	encodePixelFormat(buf[4:], pf)
	return buf
}

// WriteSetEncodings returns the SetEncodings record requesting the given
// encoding IDs, in order.
func WriteSetEncodings(encodings []int32) []byte {
	buf := make([]byte, 4+4*len(encodings))
	buf[0] = MsgSetEncodings
	// buf[1] is padding.
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(encodings)))
	for i, e := range encodings {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], uint32(e))
	}
	return buf
}

// WriteFramebufferUpdateRequest returns the 10-byte FramebufferUpdateRequest
// record.
func WriteFramebufferUpdateRequest(incremental bool, x, y, w, h uint16) []byte {
	buf := make([]byte, 10)
	buf[0] = MsgFramebufferUpdateReq
	buf[1] = boolToU8(incremental)
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	binary.BigEndian.PutUint16(buf[6:8], w)
	binary.BigEndian.PutUint16(buf[8:10], h)
	return buf
}

// WriteKeyEvent returns the 8-byte KeyEvent record.
func WriteKeyEvent(down bool, keysym uint32) []byte {
	buf := make([]byte, 8)
	buf[0] = MsgKeyEvent
	buf[1] = boolToU8(down)
	// buf[2:4] is padding.
	binary.BigEndian.PutUint32(buf[4:8], keysym)
	return buf
}

// WritePointerEvent returns the 6-byte PointerEvent record. Coordinates are
// clamped to the u16 range by the caller (see internal/session) before
// reaching here; this function simply encodes whatever it is given.
func WritePointerEvent(mask uint8, x, y uint16) []byte {
	buf := make([]byte, 6)
	buf[0] = MsgPointerEvent
	buf[1] = mask
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	return buf
}

// WriteClientCutText returns the ClientCutText record carrying text as
// Latin-1 bytes, the outbound dual of the server's ServerCutText message.
func WriteClientCutText(text []byte) []byte {
	buf := make([]byte, 8+len(text))
	buf[0] = MsgClientCutText
	// buf[1:4] is padding.
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(text)))
	copy(buf[8:], text)
	return buf
}
