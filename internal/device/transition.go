package device

import (
	"time"

	"github.com/muurk/remoterelay/internal/atcmd"
)

// Config holds the orchestrator timing.
type Config struct {
	// ConnectInterval is how long a station connect may take before it is
	// retried.
	ConnectInterval time.Duration

	// MaxConnectAttempts is the number of station connects issued before
	// falling back to automatic provisioning.
	MaxConnectAttempts int

	// ShutdownGrace delays a requested halt or restart so in-flight
	// responses can be delivered.
	ShutdownGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectInterval:    28 * time.Second,
		MaxConnectAttempts: 3,
		ShutdownGrace:      3 * time.Second,
	}
}

// Transition applies e to s. It has no side effects; collaborator calls
// for the resulting state are made by the Orchestrator.
func (c Config) Transition(s State, e Event) State {
	switch e := e.(type) {
	case IntentReceived:
		return onIntent(s, e.Intent)
	case LinkEstablished:
		return onLink(s)
	case PersistRequested:
		return enterLifecycle(s, PersistSettings)
	case FactoryResetRequested:
		return enterLifecycle(s, DestroySettingsChecksum)
	case EraseRequested:
		return enterLifecycle(s, EraseSettings)
	case ShutdownRequestedEvent:
		return enterStopping(s, ShutdownRequested)
	case RestartRequestedEvent:
		return enterStopping(s, RestartRequested)
	case ConnectTimedOut:
		return c.onConnectTimeout(s)
	case GraceElapsed:
		return onGrace(s)
	}
	return s
}

func onIntent(s State, i atcmd.Intent) State {
	if s.Lifecycle.Stopping() {
		return s
	}

	switch i {
	case atcmd.IntentReset:
		s.Lifecycle = Reset
	case atcmd.IntentRestore:
		s.Lifecycle = Restore
	case atcmd.IntentStationMode:
		s.Desired = StaRequested
	case atcmd.IntentAccessPointMode:
		s.Desired = ApRequested
	case atcmd.IntentSmartStart, atcmd.IntentSmartConfig:
		s.Wireless = AutoRequested
		s.Heartbeat = HeartbeatNone
		s.Attempts = 0
	case atcmd.IntentServer:
		if s.WebEnabled {
			s.Web = WebRequested
		}
	}
	return s
}

func onLink(s State) State {
	switch s.Wireless {
	case StaRequested, AutoConnecting:
		s.Wireless = StaActive
		s.Heartbeat = HeartbeatReceived
	}
	return s
}

func enterLifecycle(s State, l Lifecycle) State {
	if s.Lifecycle.Stopping() {
		return s
	}
	s.Lifecycle = l
	return s
}

func enterStopping(s State, l Lifecycle) State {
	if s.Lifecycle.Stopping() {
		return s
	}
	s.Lifecycle = l
	if s.WebEnabled {
		s.Web = WebRestOnly
	}
	return s
}

func (c Config) onConnectTimeout(s State) State {
	if s.Wireless != StaRequested || s.Heartbeat != HeartbeatAwaitingBackground {
		return s
	}
	if s.Attempts < c.MaxConnectAttempts {
		// HeartbeatNone makes the orchestrator issue the next connect.
		s.Heartbeat = HeartbeatNone
		return s
	}
	s.Heartbeat = HeartbeatTimedOut
	s.Wireless = AutoRequested
	return s
}

func onGrace(s State) State {
	switch s.Lifecycle {
	case ShutdownRequested:
		s.Lifecycle = ShutdownHalt
	case RestartRequested:
		s.Lifecycle = ShutdownRestart
	}
	return s
}

// webTarget is the web mode s settles on.
func webTarget(s State) WebMode {
	switch {
	case !s.WebEnabled:
		return WebDisabled
	case s.Lifecycle.Stopping():
		return WebRestOnly
	case s.Wireless.Active():
		return WebFullService
	case s.Wireless == AutoConnecting:
		return WebConfigOnly
	default:
		return WebRequested
	}
}
