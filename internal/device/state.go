package device

import "fmt"

// Lifecycle is the device lifecycle axis.
type Lifecycle int

const (
	AfterSetup Lifecycle = iota
	ShutdownRequested
	RestartRequested
	ShutdownHalt
	ShutdownRestart
	EraseSettings
	Restore
	Reset
	DestroySettingsChecksum
	PersistSettings
)

var lifecycleNames = [...]string{
	AfterSetup:              "after-setup",
	ShutdownRequested:       "shutdown-requested",
	RestartRequested:        "restart-requested",
	ShutdownHalt:            "shutdown-halt",
	ShutdownRestart:         "shutdown-restart",
	EraseSettings:           "erase-settings",
	Restore:                 "restore",
	Reset:                   "reset",
	DestroySettingsChecksum: "destroy-settings-checksum",
	PersistSettings:         "persist-settings",
}

func (l Lifecycle) String() string { return enumName(lifecycleNames[:], int(l), "Lifecycle") }

func (l Lifecycle) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Stopping reports whether the device is on its way down.
func (l Lifecycle) Stopping() bool {
	switch l {
	case ShutdownRequested, RestartRequested, ShutdownHalt, ShutdownRestart:
		return true
	}
	return false
}

// WirelessMode is the wireless axis.
type WirelessMode int

const (
	ApRequested WirelessMode = iota
	StaRequested
	ApActive
	StaActive
	AutoRequested
	AutoConnecting
	Off
)

var wirelessNames = [...]string{
	ApRequested:    "ap-requested",
	StaRequested:   "sta-requested",
	ApActive:       "ap-active",
	StaActive:      "sta-active",
	AutoRequested:  "auto-requested",
	AutoConnecting: "auto-connecting",
	Off:            "off",
}

func (w WirelessMode) String() string { return enumName(wirelessNames[:], int(w), "WirelessMode") }

func (w WirelessMode) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// Active reports whether a network is up.
func (w WirelessMode) Active() bool { return w == ApActive || w == StaActive }

// WebMode is the web service axis.
type WebMode int

const (
	WebRequested WebMode = iota
	WebFullService
	WebConfigOnly
	WebRestOnly
	WebDisabled
)

var webNames = [...]string{
	WebRequested:   "requested",
	WebFullService: "full-service",
	WebConfigOnly:  "config-only",
	WebRestOnly:    "rest-only",
	WebDisabled:    "disabled",
}

func (w WebMode) String() string { return enumName(webNames[:], int(w), "WebMode") }

func (w WebMode) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// Heartbeat tracks the pending station connect.
type Heartbeat int

const (
	HeartbeatNone Heartbeat = iota
	HeartbeatAwaitingBackground
	HeartbeatReceived
	HeartbeatTimedOut
)

var heartbeatNames = [...]string{
	HeartbeatNone:               "none",
	HeartbeatAwaitingBackground: "awaiting-background",
	HeartbeatReceived:           "received",
	HeartbeatTimedOut:           "timed-out",
}

func (h Heartbeat) String() string { return enumName(heartbeatNames[:], int(h), "Heartbeat") }

func (h Heartbeat) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func enumName(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

// State is the complete orchestrator state.
type State struct {
	Lifecycle Lifecycle    `json:"lifecycle"`
	Wireless  WirelessMode `json:"wireless"`
	Web       WebMode      `json:"web"`
	Heartbeat Heartbeat    `json:"heartbeat"`

	// Attempts counts station connects issued since the last request.
	Attempts int `json:"connect_attempts"`

	// Desired is the mode a reset re-requests: ApRequested or StaRequested.
	Desired WirelessMode `json:"desired"`

	// WebEnabled mirrors the webservice flag of the current settings.
	WebEnabled bool `json:"web_enabled"`
}

// InitialState derives the startup state from the settings flags.
func InitialState(portal, webservice bool) State {
	desired := StaRequested
	if portal {
		desired = ApRequested
	}
	web := WebRequested
	if !webservice {
		web = WebDisabled
	}
	return State{
		Lifecycle:  AfterSetup,
		Wireless:   desired,
		Web:        web,
		Desired:    desired,
		WebEnabled: webservice,
	}
}
