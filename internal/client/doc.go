// Package client talks to the HTTP API of a relay controller.
//
// Requests retry with exponential backoff on network errors and 5xx
// statuses. Every failure is a *DeviceError whose Type tells network,
// auth, HTTP, parse and validation problems apart; GetTroubleshootingHint
// turns one into advice for the operator.
//
//	c := client.NewClient("192.168.4.1", 80)
//	c.SetAuth("admin", "remoterelay")
//	st, err := c.SetChannel(1, true)
package client
