// Package wireless adapts the host network stack to the device
// orchestrator.
//
// The orchestrator thinks in radio terms (access point, station, automatic
// provisioning). On a host those become: advertise the API over mDNS right
// away for access point mode, or wait for a usable uplink and advertise
// once it is there. A successful uplink probe posts device.LinkEstablished.
package wireless
