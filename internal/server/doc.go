// Package server implements the relay controller's HTTP API.
//
// Every handler that touches settings, relays or the orchestrator runs its
// work through device.Loop.Do, so the control loop stays the only owner of
// the device state. The orchestrator decides which routes are served by
// calling SetMode:
//
//   - WebFullService serves everything
//   - WebConfigOnly drops the channel routes
//   - WebRestOnly drops the routes that change anything
//   - WebDisabled (and WebRequested) answer 503 for all but "/"
//
// # Routes
//
//	GET  /              418 teapot, never authenticated
//	GET  /debug         last diagnostic log lines
//	GET  /settings      settings JSON (no password)
//	POST /settings      form fields applied and persisted, 201 + JSON
//	POST /reset         factory reset, then restart
//	POST /erase         erase the settings region, then restart
//	POST /shutdown      halt after the grace period
//	POST /restart       restart after the grace period
//	GET  /state         orchestrator state JSON
//	GET  /channel/{id}  {"channel":n,"mode":"on|off"}
//	PUT  /channel/{id}  mode=on|off
//	GET  /events        websocket stream of state snapshots
//
// Basic auth applies to everything but "/" when both login and password
// are set.
//
// # TLS
//
// The server listens on plain HTTP unless a certificate and key are
// configured or GenerateCert asks for an in-memory self-signed one.
package server
