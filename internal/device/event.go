package device

import "github.com/muurk/remoterelay/internal/atcmd"

// Event is anything that can move the orchestrator. The set is closed.
type Event interface {
	event()
}

// IntentReceived carries a recognized serial command.
type IntentReceived struct {
	Intent atcmd.Intent
}

// LinkEstablished reports that the station joined a network.
type LinkEstablished struct{}

// PersistRequested asks for the in-memory settings to be saved.
type PersistRequested struct{}

// FactoryResetRequested destroys the current settings and restarts.
type FactoryResetRequested struct{}

// EraseRequested wipes the settings region and restarts.
type EraseRequested struct{}

// ShutdownRequestedEvent and RestartRequestedEvent come from the operator.
type (
	ShutdownRequestedEvent struct{}
	RestartRequestedEvent  struct{}
)

// ConnectTimedOut fires when a station connect got no link in time.
type ConnectTimedOut struct{}

// GraceElapsed fires when the shutdown grace delay is over.
type GraceElapsed struct{}

func (IntentReceived) event()         {}
func (LinkEstablished) event()        {}
func (PersistRequested) event()       {}
func (FactoryResetRequested) event()  {}
func (EraseRequested) event()         {}
func (ShutdownRequestedEvent) event() {}
func (RestartRequestedEvent) event()  {}
func (ConnectTimedOut) event()        {}
func (GraceElapsed) event()           {}
