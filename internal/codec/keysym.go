package codec

// X11 keysyms for the keys a client needs beyond plain Unicode code points
// (RFC 6143 section 7.5.4 carries keysyms opaquely; the values themselves
// come from the X11 keysymdef.h registry). Coverage is intentionally partial
// — function keys beyond F12, IME composition keys, and the right-hand
// modifier duplicates are not mapped. An unmapped key name yields 0, which
// MapKeysym's caller discards rather than sending.
const (
	KeysymBackspace uint32 = 0xff08
	KeysymTab       uint32 = 0xff09
	KeysymReturn    uint32 = 0xff0d
	KeysymEscape    uint32 = 0xff1b
	KeysymDelete    uint32 = 0xffff
	KeysymHome      uint32 = 0xff50
	KeysymLeft      uint32 = 0xff51
	KeysymUp        uint32 = 0xff52
	KeysymRight     uint32 = 0xff53
	KeysymDown      uint32 = 0xff54
	KeysymPageUp    uint32 = 0xff55
	KeysymPageDown  uint32 = 0xff56
	KeysymEnd       uint32 = 0xff57
	KeysymShiftL    uint32 = 0xffe1
	KeysymControlL  uint32 = 0xffe3
	KeysymMetaL     uint32 = 0xffe7
	KeysymAltL      uint32 = 0xffe9
	KeysymSpace     uint32 = 0x0020
)

// namedKeysyms maps the DOM/browser key names a frontend would hand us
// (KeyboardEvent.key values) to their X11 keysym. Only non-printable names
// need an entry here; printable single characters fall through to
// MapKeysym's Unicode code-point path.
var namedKeysyms = map[string]uint32{
	"Backspace":  KeysymBackspace,
	"Tab":        KeysymTab,
	"Enter":      KeysymReturn,
	"Escape":     KeysymEscape,
	"Delete":     KeysymDelete,
	"Home":       KeysymHome,
	"ArrowLeft":  KeysymLeft,
	"ArrowUp":    KeysymUp,
	"ArrowRight": KeysymRight,
	"ArrowDown":  KeysymDown,
	"PageUp":     KeysymPageUp,
	"PageDown":   KeysymPageDown,
	"End":        KeysymEnd,
	"Shift":      KeysymShiftL,
	"Control":    KeysymControlL,
	"Meta":       KeysymMetaL,
	"Alt":        KeysymAltL,
	" ":          KeysymSpace,
}

var functionKeysyms = func() map[string]uint32 {
	m := make(map[string]uint32, 12)
	base := uint32(0xffbe) // F1
	names := []string{"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12"}
	for i, name := range names {
		m[name] = base + uint32(i)
	}
	return m
}()

// MapKeysym converts a frontend key name to its X11 keysym. Named
// non-printable keys (navigation, editing, modifiers, function keys) are
// looked up in a table; a single-rune name is assumed printable and mapped
// to its Unicode code point, which covers Basic Latin. Anything else
// (unknown multi-rune names, empty strings) maps to 0, and callers must
// drop 0 rather than emit it on the wire.
func MapKeysym(key string) uint32 {
	if sym, ok := namedKeysyms[key]; ok {
		return sym
	}
	if sym, ok := functionKeysyms[key]; ok {
		return sym
	}
	runes := []rune(key)
	if len(runes) == 1 {
		return uint32(runes[0])
	}
	return 0
}
