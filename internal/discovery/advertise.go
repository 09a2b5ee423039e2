package discovery

import (
	"fmt"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// Advertisement is what a relay controller announces about itself.
type Advertisement struct {
	ID       string
	Port     int
	Version  string
	Channels int

	// Auth is true when the API requires basic auth.
	Auth bool
}

// Instance is the mDNS instance name for a.
func (a Advertisement) Instance() string {
	return InstancePrefix + a.ID
}

// TXT renders the TXT records.
func (a Advertisement) TXT() []string {
	return []string{
		"id=" + a.ID,
		"version=" + a.Version,
		"channels=" + strconv.Itoa(a.Channels),
		"auth=" + strconv.FormatBool(a.Auth),
		"path=/",
	}
}

// Advertiser publishes one Advertisement until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers a on all multicast interfaces.
func Advertise(a Advertisement) (*Advertiser, error) {
	if !instancePattern.MatchString(a.Instance()) {
		return nil, fmt.Errorf("invalid device id %q: use letters and digits only", a.ID)
	}

	server, err := zeroconf.Register(a.Instance(), ServiceType, ServiceDomain, a.Port, a.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Update replaces the TXT records, e.g. after the auth setting changed.
func (a *Advertiser) Update(ad Advertisement) {
	a.server.SetText(ad.TXT())
}

func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}
