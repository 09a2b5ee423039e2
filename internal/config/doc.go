// Package config holds the YAML files of the remoterelay tools.
//
// relayd reads relayd.yaml (Daemon): flash image, serial port, relay
// channel count, HTTP listener, uplink probing and orchestrator timing.
// Values missing from the file keep their defaults, and command-line flags
// override the file.
//
// relayctl keeps controllers.yaml (Registry): nicknames, last known
// address and channel labels of controllers it has talked to.
//
// # Location
//
// Both files live in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/remoterelay or $HOME/.config/remoterelay
//   - macOS: $HOME/.config/remoterelay
//   - Windows: %LOCALAPPDATA%\remoterelay
//
// Writes go to a temporary file that is renamed into place.
//
// # Security
//
// Neither file stores the controller password or the wireless key. Those
// live in the controller's settings flash and are prompted for by relayctl.
package config
