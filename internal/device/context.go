package device

import "github.com/muurk/remoterelay/internal/settings"

// Relay switches the output channels.
type Relay interface {
	Set(channel int, on bool) error
	State(channel int) (bool, error)
	Channels() int
}

// Context is the device state owned by the control loop. Code running
// inside Loop.Do may use it freely; nothing else may touch it.
type Context struct {
	// Record is the current settings. Changes take effect immediately and
	// become durable after the next PersistRequested is handled.
	Record *settings.Record

	// Cursor is the flash address of Record.
	Cursor int

	Store        Store
	Relay        Relay
	Orchestrator *Orchestrator
}
