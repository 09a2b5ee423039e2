package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/remoterelay/internal/lookup"
)

// ErrUnknownParameter is returned by Apply for names it does not know.
var ErrUnknownParameter = errors.New("unknown settings parameter")

// Parameter names accepted by Apply, sorted.
const (
	ParamDebug      = "debug"
	ParamLogin      = "login"
	ParamPassword   = "password"
	ParamSerial     = "serial"
	ParamSSID       = "ssid"
	ParamWebservice = "webservice"
	ParamPortal     = "wifimanager_portal"
	ParamWPAKey     = "wpa_key"
)

var params = lookup.New(
	ParamDebug,
	ParamLogin,
	ParamPassword,
	ParamSerial,
	ParamSSID,
	ParamWebservice,
	ParamPortal,
	ParamWPAKey,
)

// Params lists the names Apply accepts.
func Params() []string {
	names := make([]string, params.Len())
	for i := range names {
		names[i] = params.Word(i)
	}
	return names
}

// KnownParam reports whether Apply accepts name.
func KnownParam(name string) bool {
	_, ok := params.Find(name)
	return ok
}

// Apply sets the field called name from its text form. Booleans are true
// only for "true" in any letter case. Strings longer than the field are
// truncated.
func (r *Record) Apply(name, value string) error {
	i, ok := params.Find(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}

	on := strings.EqualFold(value, "true")
	switch params.Word(i) {
	case ParamDebug:
		r.SetDebug(on)
	case ParamLogin:
		r.SetLogin(value)
	case ParamPassword:
		r.SetPassword(value)
	case ParamSerial:
		r.SetSerial(on)
	case ParamSSID:
		r.SetSSID(value)
	case ParamWebservice:
		r.SetWebservice(on)
	case ParamPortal:
		r.SetPortal(on)
	case ParamWPAKey:
		r.SetWPAKey(value)
	}
	return nil
}
