package settings

import (
	"fmt"
	"unicode/utf8"
)

// JSONBufferSize always holds a rendered record.
const JSONBufferSize = 384

const hexDigits = "0123456789abcdef"

// JSON renders the public fields of r into buf[:0] and returns the result.
// The password is never rendered. It panics when the rendering does not fit
// in cap(buf); buffers of JSONBufferSize always suffice.
func (r *Record) JSON(buf []byte) []byte {
	w := fixedWriter{buf: buf[:0]}
	w.str(`{"login":`)
	w.quote(r.LoginString())
	w.str(`,"debug":`)
	w.bool(r.Debug())
	w.str(`,"serial":`)
	w.bool(r.Serial())
	w.str(`,"webservice":`)
	w.bool(r.Webservice())
	w.str(`,"wifimanager_portal":`)
	w.bool(r.Portal())
	w.str(`}`)
	return w.buf
}

// MarshalJSON implements json.Marshaler with the same output as JSON.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.JSON(make([]byte, 0, JSONBufferSize)), nil
}

// fixedWriter appends to a buffer without ever growing it.
type fixedWriter struct {
	buf []byte
}

func (w *fixedWriter) str(s string) {
	if len(w.buf)+len(s) > cap(w.buf) {
		panic(fmt.Sprintf("settings: JSON does not fit in %d byte buffer", cap(w.buf)))
	}
	w.buf = append(w.buf, s...)
}

func (w *fixedWriter) bool(v bool) {
	if v {
		w.str("true")
	} else {
		w.str("false")
	}
}

func (w *fixedWriter) quote(s string) {
	w.str(`"`)
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				w.str(s[start:i])
				w.str(`\ufffd`)
				start = i + 1
			}
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		w.str(s[start:i])
		switch c {
		case '"', '\\':
			w.str(`\` + string(c))
		case '\n':
			w.str(`\n`)
		case '\r':
			w.str(`\r`)
		case '\t':
			w.str(`\t`)
		default:
			w.str(`\u00` + string(hexDigits[c>>4]) + string(hexDigits[c&0xF]))
		}
		i++
		start = i
	}
	w.str(s[start:])
	w.str(`"`)
}
