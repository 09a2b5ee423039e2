package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Field capacities in bytes, NUL included.
const (
	loginCap    = 21
	passwordCap = 21
	ssidCap     = 33
	wpaKeyCap   = 65
)

// Field offsets within the encoded record.
const (
	offFlags    = 0
	offLogin    = 2
	offPassword = offLogin + loginCap
	offSSID     = offPassword + passwordCap
	offWPAKey   = offSSID + ssidCap

	// RecordSize is the encoded record without its checksum byte.
	RecordSize = offWPAKey + wpaKeyCap

	// SlotSize is one record plus its trailing checksum byte.
	SlotSize = RecordSize + 1
)

// The layout is shared with devices already in the field. Each pair fails
// to compile if a field moves.
const (
	_ uint = offSSID - 44
	_ uint = 44 - offSSID
	_ uint = offWPAKey - 77
	_ uint = 77 - offWPAKey
	_ uint = RecordSize - 142
	_ uint = 142 - RecordSize
)

// Flag bit positions.
const (
	markMask      = 0x000F
	flagDebug     = 1 << 4
	flagSerial    = 1 << 5
	flagWebserver = 1 << 6
	flagPortal    = 1 << 7
	cyclesShift   = 8

	// MarkValid is the wear-level mark of a slot that was never invalidated.
	MarkValid = 0xF
)

// Default field values installed when the region holds no valid record.
const (
	DefaultLogin    = "admin"
	DefaultPassword = "remoterelay"
	DefaultSSID     = "RemoteRelay"
	DefaultWPAKey   = "remoterelay"
)

// Record is the persisted device configuration.
//
// String fields are fixed arrays holding NUL-terminated text. Bytes past the
// terminator are inert: setters never touch them and they still count
// towards the checksum.
type Record struct {
	Flags    uint16
	Login    [loginCap]byte
	Password [passwordCap]byte
	SSID     [ssidCap]byte
	WPAKey   [wpaKeyCap]byte
}

// Defaults returns the factory record.
func Defaults() *Record {
	r := &Record{}
	r.SetMark(MarkValid)
	r.SetWebservice(true)
	r.SetPortal(true)
	r.SetLogin(DefaultLogin)
	r.SetPassword(DefaultPassword)
	r.SetSSID(DefaultSSID)
	r.SetWPAKey(DefaultWPAKey)
	return r
}

func (r *Record) Mark() uint8 { return uint8(r.Flags & markMask) }

func (r *Record) SetMark(m uint8) {
	r.Flags = r.Flags&^markMask | uint16(m)&markMask
}

func (r *Record) Debug() bool      { return r.Flags&flagDebug != 0 }
func (r *Record) Serial() bool     { return r.Flags&flagSerial != 0 }
func (r *Record) Webservice() bool { return r.Flags&flagWebserver != 0 }
func (r *Record) Portal() bool     { return r.Flags&flagPortal != 0 }

func (r *Record) SetDebug(on bool)      { r.setFlag(flagDebug, on) }
func (r *Record) SetSerial(on bool)     { r.setFlag(flagSerial, on) }
func (r *Record) SetWebservice(on bool) { r.setFlag(flagWebserver, on) }
func (r *Record) SetPortal(on bool)     { r.setFlag(flagPortal, on) }

func (r *Record) setFlag(bit uint16, on bool) {
	if on {
		r.Flags |= bit
	} else {
		r.Flags &^= bit
	}
}

// EraseCycles counts how often the slot cursor wrapped around the region.
// It wraps silently at 256.
func (r *Record) EraseCycles() uint8 { return uint8(r.Flags >> cyclesShift) }

func (r *Record) SetEraseCycles(n uint8) {
	r.Flags = r.Flags&0x00FF | uint16(n)<<cyclesShift
}

func (r *Record) LoginString() string    { return cstring(r.Login[:]) }
func (r *Record) PasswordString() string { return cstring(r.Password[:]) }
func (r *Record) SSIDString() string     { return cstring(r.SSID[:]) }
func (r *Record) WPAKeyString() string   { return cstring(r.WPAKey[:]) }

func (r *Record) SetLogin(s string)    { setCString(r.Login[:], s) }
func (r *Record) SetPassword(s string) { setCString(r.Password[:], s) }
func (r *Record) SetSSID(s string)     { setCString(r.SSID[:], s) }
func (r *Record) SetWPAKey(s string)   { setCString(r.WPAKey[:], s) }

// stringFields lists the string fields in layout order.
func (r *Record) stringFields() [][]byte {
	return [][]byte{r.Login[:], r.Password[:], r.SSID[:], r.WPAKey[:]}
}

// MarshalBinary encodes the record in its on-flash layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.encode(make([]byte, 0, SlotSize)), nil
}

func (r *Record) encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, r.Flags)
	for _, f := range r.stringFields() {
		buf = append(buf, f...)
	}
	return buf
}

// UnmarshalBinary decodes the first RecordSize bytes of data.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return &LayoutError{Addr: -1, Reason: fmt.Sprintf("short record of %d bytes", len(data))}
	}
	r.Flags = binary.LittleEndian.Uint16(data[offFlags:])
	copy(r.Login[:], data[offLogin:])
	copy(r.Password[:], data[offPassword:])
	copy(r.SSID[:], data[offSSID:])
	copy(r.WPAKey[:], data[offWPAKey:])
	return nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// setCString copies at most len(dst)-1 bytes of s followed by one NUL.
// A multi-byte character that does not fit is dropped whole.
func setCString(dst []byte, s string) {
	if limit := len(dst) - 1; len(s) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	n := copy(dst, s)
	dst[n] = 0
}
