// Package discovery announces and finds relay controllers over mDNS.
//
// A controller registers itself as "RemoteRelay-<id>" under the
// "_remoterelay._tcp" service type once its web API is up. The TXT records
// carry the firmware version, the channel count and whether the API
// requires basic auth.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Println(d, d.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
