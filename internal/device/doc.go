// Package device runs the relay controller: the orchestrator state
// machines and the control loop that owns the settings.
//
// The orchestrator has three axes (lifecycle, wireless and web) plus a
// heartbeat for the pending station connect. Events change the state
// through Config.Transition, which is pure. Step then makes the collaborator
// calls the new state asks for (saving settings, starting the access point,
// connecting) until the state is stable.
//
// Loop is the only goroutine that touches a Context. Serial lines arrive
// through a channel fed by ReadLines; HTTP handlers hand closures to
// Loop.Do. Each iteration takes at most one of each and then steps the
// orchestrator.
package device
