package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered relay controller on the network
type Device struct {
	// ID is the device identifier from the instance name (e.g., "a4cf12")
	ID string

	// Instance is the full mDNS instance name (e.g., "RemoteRelay-a4cf12")
	Instance string

	// Hostname is the mDNS hostname (e.g., "relaybox.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the device has none
	IP string

	// Port is the HTTP API port
	Port int

	// Metadata contains the TXT records
	// Fields: "id", "version", "channels", "auth", "path"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("RemoteRelay %s (%s) at %s:%d", d.ID, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Channels returns the advertised channel count, or 0 if unknown.
func (d *Device) Channels() int {
	n, err := strconv.Atoi(d.GetMetadata("channels"))
	if err != nil {
		return 0
	}
	return n
}

// RequiresAuth reports whether the device advertised basic auth.
func (d *Device) RequiresAuth() bool {
	return d.GetMetadata("auth") == "true"
}
