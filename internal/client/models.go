package client

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Settings is the JSON returned by GET /settings and POST /settings.
// The device never returns the password or the wireless key.
type Settings struct {
	Login      string `json:"login"`
	Debug      bool   `json:"debug"`
	Serial     bool   `json:"serial"`
	Webservice bool   `json:"webservice"`
	Portal     bool   `json:"wifimanager_portal"`
}

// State is the orchestrator snapshot returned by GET /state and streamed on
// /events. Enum values are kept as their wire names.
type State struct {
	Lifecycle  string `json:"lifecycle"`
	Wireless   string `json:"wireless"`
	Web        string `json:"web"`
	Heartbeat  string `json:"heartbeat"`
	Attempts   int    `json:"connect_attempts"`
	Desired    string `json:"desired"`
	WebEnabled bool   `json:"web_enabled"`
}

// ChannelState is the JSON of GET/PUT /channel/{id}.
type ChannelState struct {
	Channel int    `json:"channel"`
	Mode    string `json:"mode"`
}

// On reports whether the relay is closed.
func (c ChannelState) On() bool { return c.Mode == "on" }

// SettingsUpdate holds the fields to change; nil fields are left alone.
type SettingsUpdate struct {
	Debug      *bool
	Serial     *bool
	Webservice *bool
	Portal     *bool
	Login      *string
	Password   *string
	SSID       *string
	WPAKey     *string
}

// Empty reports whether the update changes nothing.
func (u *SettingsUpdate) Empty() bool {
	return len(u.ToFormData()) == 0
}

// ToFormData converts the update to the form fields POST /settings takes.
func (u *SettingsUpdate) ToFormData() url.Values {
	form := url.Values{}
	setBool := func(name string, v *bool) {
		if v != nil {
			form.Set(name, strconv.FormatBool(*v))
		}
	}
	setString := func(name string, v *string) {
		if v != nil {
			form.Set(name, *v)
		}
	}

	setBool("debug", u.Debug)
	setBool("serial", u.Serial)
	setBool("webservice", u.Webservice)
	setBool("wifimanager_portal", u.Portal)
	setString("login", u.Login)
	setString("password", u.Password)
	setString("ssid", u.SSID)
	setString("wpa_key", u.WPAKey)
	return form
}

// Field capacities of the stored settings, without the terminator.
const (
	MaxLoginLen    = 20
	MaxPasswordLen = 20
	MaxSSIDLen     = 32
	MaxWPAKeyLen   = 64
	MinWPAKeyLen   = 8
)

// Validate checks the update against the device's field limits. It
// returns every problem found.
func (u *SettingsUpdate) Validate() []error {
	var errs []error
	check := func(name string, v *string, max int) {
		if v != nil && len(*v) > max {
			errs = append(errs, NewValidationError(fmt.Sprintf("%s too long (max %d chars): %d chars", name, max, len(*v))))
		}
	}

	check("login", u.Login, MaxLoginLen)
	check("password", u.Password, MaxPasswordLen)
	check("ssid", u.SSID, MaxSSIDLen)
	check("wpa_key", u.WPAKey, MaxWPAKeyLen)

	if u.SSID != nil && *u.SSID == "" {
		errs = append(errs, NewValidationError("ssid cannot be empty"))
	}
	if u.WPAKey != nil && *u.WPAKey != "" && len(*u.WPAKey) < MinWPAKeyLen {
		errs = append(errs, NewValidationError(fmt.Sprintf("wpa_key too short (min %d chars): %d chars", MinWPAKeyLen, len(*u.WPAKey))))
	}
	return errs
}

// ParseSettingsArgs turns name=value pairs, as typed on a command line,
// into an update. Names are the form field names.
func ParseSettingsArgs(args map[string]string) (*SettingsUpdate, error) {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	u := &SettingsUpdate{}
	for _, name := range names {
		value := args[name]
		switch name {
		case "debug", "serial", "webservice", "wifimanager_portal":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, NewValidationError(fmt.Sprintf("%s must be true or false, got %q", name, value))
			}
			switch name {
			case "debug":
				u.Debug = &b
			case "serial":
				u.Serial = &b
			case "webservice":
				u.Webservice = &b
			default:
				u.Portal = &b
			}
		case "login":
			u.Login = &value
		case "password":
			u.Password = &value
		case "ssid":
			u.SSID = &value
		case "wpa_key":
			u.WPAKey = &value
		default:
			return nil, NewValidationError(fmt.Sprintf("unknown setting %q", name))
		}
	}
	return u, nil
}
