package codec

import (
	"encoding/binary"
	"fmt"
)

// minServerInitSize is the ServerInit record length excluding the
// variable-length server name (RFC 6143 section 7.3.2).
const minServerInitSize = 2 + 2 + PixelFormatSize + 4

// ServerInit is the record the server sends once, right after a successful
// handshake, carrying the agreed screen geometry and a human-readable name.
type ServerInit struct {
	Width       uint16
	Height      uint16
	PixelFormat PixelFormat
	Name        string
}

// ServerInitLength inspects buf and reports how many bytes the full
// ServerInit record needs, or ok=false if buf does not yet contain enough
// bytes to know (i.e. fewer than minServerInitSize).
func ServerInitLength(buf []byte) (n int, ok bool) {
	if len(buf) < minServerInitSize {
		return 0, false
	}
	nameLen := binary.BigEndian.Uint32(buf[20:24])
	return minServerInitSize + int(nameLen), true
}

// ParseServerInit decodes a complete ServerInit record. The caller must
// first use ServerInitLength to ensure buf holds exactly that many bytes.
func ParseServerInit(buf []byte) (ServerInit, error) {
	if len(buf) < minServerInitSize {
		return ServerInit{}, fmt.Errorf("codec: ServerInit too short: %d bytes", len(buf))
	}
	nameLen := binary.BigEndian.Uint32(buf[20:24])
	want := minServerInitSize + int(nameLen)
	if len(buf) < want {
		return ServerInit{}, fmt.Errorf("codec: ServerInit truncated: have %d bytes, want %d", len(buf), want)
	}
	return ServerInit{
		Width:       binary.BigEndian.Uint16(buf[0:2]),
		Height:      binary.BigEndian.Uint16(buf[2:4]),
		PixelFormat: decodePixelFormat(buf[4:20]),
		Name:        string(buf[24:want]),
	}, nil
}

// WriteServerInit is the inverse of ParseServerInit. It exists primarily so
// that tests can exercise the round-trip law ParseServerInit(WriteServerInit(x))
// == x; the client never sends a ServerInit itself.
func WriteServerInit(si ServerInit) []byte {
	buf := make([]byte, minServerInitSize+len(si.Name))
	binary.BigEndian.PutUint16(buf[0:2], si.Width)
	binary.BigEndian.PutUint16(buf[2:4], si.Height)
	encodePixelFormat(buf[4:20], si.PixelFormat)
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(si.Name)))
	copy(buf[24:], si.Name)
	return buf
}
