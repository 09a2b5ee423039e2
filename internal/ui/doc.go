// Package ui renders relayctl output with Lip Gloss and runs the Bubble Tea
// watch screen.
//
// One-shot commands print through a Printer: a header box, sorted key/value
// fields, success lines and failure boxes that carry the troubleshooting
// hint of the client error. Destructive commands ask with Confirm first.
//
// WatchModel follows a controller's /events stream, shows the orchestrator
// axes as they change and lets the user switch relays with the number keys:
//
//	states, errs, err := c.Watch(ctx)
//	if err != nil {
//	    return err
//	}
//	return ui.RunWatch(ui.WatchSource{
//	    Title:    "bench1",
//	    States:   states,
//	    Errs:     errs,
//	    Channels: 2,
//	    Fetch:    c.GetChannel,
//	    Set:      c.SetChannel,
//	})
package ui
