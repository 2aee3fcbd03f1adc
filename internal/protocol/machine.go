// Package protocol implements the client side of the RFB 3.8 handshake and
// the Connected-phase message framing, as a pure byte-in/byte-out state
// machine. It owns no transport and no goroutines; internal/session drives
// it by feeding inbound WebSocket payloads through Feed and writing whatever
// byte slices come back.
package protocol

import (
	"encoding/binary"
	"fmt"

	"rfbws/internal/codec"
	"rfbws/internal/desauth"
	"rfbws/internal/eventbus"
)

const (
	versionRecordLen = 12
	rectHeaderLen    = 12 // x,y,w,h (u16 x4) + encoding (i32)
)

var clientVersion = []byte("RFB 003.008\n")

// Machine is the client-side RFB protocol state machine. The zero value is
// not usable; construct one with New.
type Machine struct {
	phase    Phase
	buf      []byte
	password []byte // nil means "no password configured"

	width       uint16
	height      uint16
	serverName  string
	pixelFormat codec.PixelFormat
}

// New returns a Machine ready to begin the handshake. password may be nil;
// if the server then offers only VNC Authentication, Feed returns
// AuthRequiredError.
func New(password []byte) *Machine {
	return &Machine{phase: AwaitVersion, password: password}
}

// Phase reports the machine's current handshake stage.
func (m *Machine) Phase() Phase { return m.phase }

// ServerName reports the name the server sent in ServerInit. Empty before
// the Connected phase is reached.
func (m *Machine) ServerName() string { return m.serverName }

// Geometry reports the screen size the server sent in ServerInit. Zero
// before the Connected phase is reached.
func (m *Machine) Geometry() (width, height uint16) { return m.width, m.height }

// Feed appends chunk (an inbound WebSocket message payload, of arbitrary
// length and boundary) to the internal accumulator and advances the state
// machine as far as the buffered bytes allow. It returns, in order, the
// outbound records the caller must write to the transport and the events
// the caller must publish. A non-nil error is terminal: the caller must not
// feed the machine again, and a reconnect needs a fresh Machine.
func (m *Machine) Feed(chunk []byte) (outbound [][]byte, events []eventbus.Event, err error) {
	if len(chunk) > 0 {
		m.buf = append(m.buf, chunk...)
	}
	for {
		out, evs, progressed, err := m.step()
		outbound = append(outbound, out...)
		events = append(events, evs...)
		if err != nil {
			return outbound, events, err
		}
		if !progressed {
			return outbound, events, nil
		}
	}
}

// consume drops the first n bytes of the accumulator.
func (m *Machine) consume(n int) {
	m.buf = m.buf[n:]
}

// step attempts one phase transition (or, in Connected, one message) using
// only what is already buffered. progressed is false when there are not yet
// enough bytes to do anything, which is the normal way Feed stops looping.
func (m *Machine) step() (outbound [][]byte, events []eventbus.Event, progressed bool, err error) {
	switch m.phase {
	case AwaitVersion:
		return m.stepAwaitVersion()
	case AwaitSecurityTypes:
		return m.stepAwaitSecurityTypes()
	case AwaitAuthChallenge:
		return m.stepAwaitAuthChallenge()
	case AwaitAuthResult:
		return m.stepAwaitAuthResult()
	case AwaitServerInit:
		return m.stepAwaitServerInit()
	case Connected:
		return m.stepConnected()
	default:
		return nil, nil, false, ProtocolError{Detail: fmt.Sprintf("unreachable phase %s", m.phase)}
	}
}

func (m *Machine) stepAwaitVersion() ([][]byte, []eventbus.Event, bool, error) {
	if len(m.buf) < versionRecordLen {
		return nil, nil, false, nil
	}
	line := m.buf[:versionRecordLen]
	m.consume(versionRecordLen)
	if line[versionRecordLen-1] != '\n' || string(line[0:4]) != "RFB " || line[7] != '.' {
		return nil, nil, true, ProtocolError{Detail: fmt.Sprintf("malformed version line %q", line)}
	}
	m.phase = AwaitSecurityTypes
	return [][]byte{append([]byte(nil), clientVersion...)}, nil, true, nil
}

func (m *Machine) stepAwaitSecurityTypes() ([][]byte, []eventbus.Event, bool, error) {
	if len(m.buf) < 1 {
		return nil, nil, false, nil
	}
	n := int(m.buf[0])
	if n == 0 {
		if len(m.buf) < 5 {
			return nil, nil, false, nil
		}
		reasonLen := int(binary.BigEndian.Uint32(m.buf[1:5]))
		if len(m.buf) < 5+reasonLen {
			return nil, nil, false, nil
		}
		reason := string(m.buf[5 : 5+reasonLen])
		m.consume(5 + reasonLen)
		return nil, nil, true, ProtocolError{Detail: fmt.Sprintf("server rejected connection: %s", reason)}
	}
	if len(m.buf) < 1+n {
		return nil, nil, false, nil
	}
	types := append([]byte(nil), m.buf[1:1+n]...)
	m.consume(1 + n)

	chosen, err := chooseSecurityType(types, m.password != nil)
	if err != nil {
		return nil, nil, true, err
	}

	switch chosen {
	case 2:
		m.phase = AwaitAuthChallenge
		return [][]byte{{chosen}}, nil, true, nil
	case 1:
		m.phase = AwaitServerInit
		out := [][]byte{
			{chosen},
			codec.WriteClientInit(true),
			codec.WriteSetEncodings([]int32{codec.EncodingRaw}),
		}
		return out, nil, true, nil
	default:
		return nil, nil, true, ProtocolError{Detail: fmt.Sprintf("unsupported security type %d chosen", chosen)}
	}
}

// chooseSecurityType picks VNC Authentication (2) when a password is
// configured and offered, otherwise None (1) when offered. With no password
// and only type 2 on offer it still picks 2; the challenge handler then
// fails with AuthRequiredError, which names the real problem better than
// "no supported type" would.
func chooseSecurityType(offered []byte, hasPassword bool) (byte, error) {
	has := func(t byte) bool {
		for _, o := range offered {
			if o == t {
				return true
			}
		}
		return false
	}
	if hasPassword && has(2) {
		return 2, nil
	}
	if has(1) {
		return 1, nil
	}
	if has(2) {
		return 2, nil
	}
	return 0, ProtocolError{Detail: "no supported security type offered"}
}

func (m *Machine) stepAwaitAuthChallenge() ([][]byte, []eventbus.Event, bool, error) {
	if len(m.buf) < desauth.ChallengeSize {
		return nil, nil, false, nil
	}
	var challenge [desauth.ChallengeSize]byte
	copy(challenge[:], m.buf[:desauth.ChallengeSize])
	m.consume(desauth.ChallengeSize)

	if m.password == nil {
		return nil, nil, true, AuthRequiredError{}
	}
	response, err := desauth.Encrypt(m.password, challenge)
	if err != nil {
		return nil, nil, true, fmt.Errorf("protocol: computing auth response: %w", err)
	}
	m.phase = AwaitAuthResult
	return [][]byte{append([]byte(nil), response[:]...)}, nil, true, nil
}

func (m *Machine) stepAwaitAuthResult() ([][]byte, []eventbus.Event, bool, error) {
	if len(m.buf) < 4 {
		return nil, nil, false, nil
	}
	status := binary.BigEndian.Uint32(m.buf[0:4])
	if status == 0 {
		m.consume(4)
		m.phase = AwaitServerInit
		out := [][]byte{
			codec.WriteClientInit(true),
			codec.WriteSetEncodings([]int32{codec.EncodingRaw}),
		}
		return out, nil, true, nil
	}
	if len(m.buf) < 8 {
		return nil, nil, false, nil
	}
	reasonLen := int(binary.BigEndian.Uint32(m.buf[4:8]))
	if len(m.buf) < 8+reasonLen {
		return nil, nil, false, nil
	}
	reason := string(m.buf[8 : 8+reasonLen])
	m.consume(8 + reasonLen)
	return nil, nil, true, AuthFailedError{Reason: reason}
}

func (m *Machine) stepAwaitServerInit() ([][]byte, []eventbus.Event, bool, error) {
	need, ok := codec.ServerInitLength(m.buf)
	if !ok || len(m.buf) < need {
		return nil, nil, false, nil
	}
	si, err := codec.ParseServerInit(m.buf[:need])
	if err != nil {
		return nil, nil, true, ProtocolError{Detail: err.Error()}
	}
	m.consume(need)

	m.width = si.Width
	m.height = si.Height
	m.serverName = si.Name
	m.pixelFormat = si.PixelFormat
	m.phase = Connected

	out := [][]byte{codec.WriteFramebufferUpdateRequest(false, 0, 0, m.width, m.height)}
	evs := []eventbus.Event{
		eventbus.Connected(),
		eventbus.Resize(m.width, m.height),
	}
	return out, evs, true, nil
}

func (m *Machine) stepConnected() ([][]byte, []eventbus.Event, bool, error) {
	if len(m.buf) < 1 {
		return nil, nil, false, nil
	}
	switch m.buf[0] {
	case codec.MsgFramebufferUpdate:
		return m.stepFramebufferUpdate()
	case codec.MsgSetColorMapEntries:
		return m.stepSetColorMapEntries()
	case codec.MsgBell:
		m.consume(1)
		return nil, []eventbus.Event{eventbus.Bell()}, true, nil
	case codec.MsgServerCutText:
		return m.stepServerCutText()
	default:
		return nil, nil, true, ProtocolError{Detail: fmt.Sprintf("unexpected message type %d", m.buf[0])}
	}
}

// stepFramebufferUpdate scans the rectangle headers of a FramebufferUpdate
// message to determine its total length before consuming it whole. Every
// rectangle must use Raw encoding; this client requests nothing else, so
// anything other than encoding 0 means the server ignored SetEncodings and
// the connection can no longer be trusted to stay framed correctly.
func (m *Machine) stepFramebufferUpdate() ([][]byte, []eventbus.Event, bool, error) {
	const headerLen = 4 // type(1) + padding(1) + numRects(2)
	if len(m.buf) < headerLen {
		return nil, nil, false, nil
	}
	numRects := int(binary.BigEndian.Uint16(m.buf[2:4]))
	bytesPerPixel := int(m.pixelFormat.BitsPerPixel) / 8

	offset := headerLen
	for i := 0; i < numRects; i++ {
		if len(m.buf) < offset+rectHeaderLen {
			return nil, nil, false, nil
		}
		w := binary.BigEndian.Uint16(m.buf[offset+4 : offset+6])
		h := binary.BigEndian.Uint16(m.buf[offset+6 : offset+8])
		encoding := int32(binary.BigEndian.Uint32(m.buf[offset+8 : offset+12]))
		if encoding != codec.EncodingRaw {
			return nil, nil, true, ProtocolError{Detail: fmt.Sprintf("unsupported rectangle encoding %d", encoding)}
		}
		offset += rectHeaderLen + int(w)*int(h)*bytesPerPixel
	}
	if len(m.buf) < offset {
		return nil, nil, false, nil
	}
	payload := append([]byte(nil), m.buf[:offset]...)
	m.consume(offset)
	return nil, []eventbus.Event{eventbus.FramebufferUpdate(payload)}, true, nil
}

// stepSetColorMapEntries parses and discards a color-map update. This
// client does not use a palette, but the bytes still have to be consumed
// to keep the stream in sync.
func (m *Machine) stepSetColorMapEntries() ([][]byte, []eventbus.Event, bool, error) {
	const headerLen = 6 // type(1) + padding(1) + firstColor(2) + numColors(2)
	if len(m.buf) < headerLen {
		return nil, nil, false, nil
	}
	numColors := int(binary.BigEndian.Uint16(m.buf[4:6]))
	total := headerLen + numColors*6
	if len(m.buf) < total {
		return nil, nil, false, nil
	}
	m.consume(total)
	return nil, nil, true, nil
}

func (m *Machine) stepServerCutText() ([][]byte, []eventbus.Event, bool, error) {
	const headerLen = 8 // type(1) + padding(3) + length(4)
	if len(m.buf) < headerLen {
		return nil, nil, false, nil
	}
	textLen := int(binary.BigEndian.Uint32(m.buf[4:8]))
	total := headerLen + textLen
	if len(m.buf) < total {
		return nil, nil, false, nil
	}
	text := append([]byte(nil), m.buf[headerLen:total]...)
	m.consume(total)
	return nil, []eventbus.Event{eventbus.ServerCutText(text)}, true, nil
}
