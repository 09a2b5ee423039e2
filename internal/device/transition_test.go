package device

import (
	"testing"

	"github.com/muurk/remoterelay/internal/atcmd"
)

func TestInitialState(t *testing.T) {
	tests := []struct {
		portal, web bool
		wireless    WirelessMode
		webMode     WebMode
	}{
		{true, true, ApRequested, WebRequested},
		{false, true, StaRequested, WebRequested},
		{true, false, ApRequested, WebDisabled},
	}
	for _, tt := range tests {
		s := InitialState(tt.portal, tt.web)
		if s.Lifecycle != AfterSetup || s.Wireless != tt.wireless || s.Web != tt.webMode {
			t.Errorf("InitialState(%v, %v) = %+v", tt.portal, tt.web, s)
		}
	}
}

func TestTransition(t *testing.T) {
	cfg := DefaultConfig()
	ap := InitialState(true, true)
	sta := InitialState(false, true)

	awaiting := sta
	awaiting.Heartbeat = HeartbeatAwaitingBackground
	awaiting.Attempts = 1

	exhausted := awaiting
	exhausted.Attempts = 3

	stopping := ap
	stopping.Lifecycle = ShutdownRequested

	tests := []struct {
		name  string
		from  State
		event Event
		check func(State) bool
	}{
		{"rst enters reset", ap, IntentReceived{atcmd.IntentReset},
			func(s State) bool { return s.Lifecycle == Reset }},
		{"restore enters restore", ap, IntentReceived{atcmd.IntentRestore},
			func(s State) bool { return s.Lifecycle == Restore }},
		{"cwmode=1 selects station", ap, IntentReceived{atcmd.IntentStationMode},
			func(s State) bool { return s.Desired == StaRequested && s.Wireless == ApRequested }},
		{"cwmode=2 selects access point", sta, IntentReceived{atcmd.IntentAccessPointMode},
			func(s State) bool { return s.Desired == ApRequested }},
		{"smart start requests auto", awaiting, IntentReceived{atcmd.IntentSmartStart},
			func(s State) bool { return s.Wireless == AutoRequested && s.Heartbeat == HeartbeatNone }},
		{"smart config requests auto", sta, IntentReceived{atcmd.IntentSmartConfig},
			func(s State) bool { return s.Wireless == AutoRequested }},
		{"mux is a no-op", ap, IntentReceived{atcmd.IntentMux},
			func(s State) bool { return s == ap }},
		{"no intent is a no-op", ap, IntentReceived{atcmd.IntentNone},
			func(s State) bool { return s == ap }},
		{"link while requesting station", awaiting, LinkEstablished{},
			func(s State) bool { return s.Wireless == StaActive && s.Heartbeat == HeartbeatReceived }},
		{"link ignored in access point mode", ap, LinkEstablished{},
			func(s State) bool { return s.Wireless == ApRequested }},
		{"timeout retries", awaiting, ConnectTimedOut{},
			func(s State) bool { return s.Wireless == StaRequested && s.Heartbeat == HeartbeatNone }},
		{"last timeout falls back", exhausted, ConnectTimedOut{},
			func(s State) bool { return s.Wireless == AutoRequested && s.Heartbeat == HeartbeatTimedOut }},
		{"stale timeout ignored", sta, ConnectTimedOut{},
			func(s State) bool { return s == sta }},
		{"persist", ap, PersistRequested{},
			func(s State) bool { return s.Lifecycle == PersistSettings }},
		{"factory reset", ap, FactoryResetRequested{},
			func(s State) bool { return s.Lifecycle == DestroySettingsChecksum }},
		{"erase", ap, EraseRequested{},
			func(s State) bool { return s.Lifecycle == EraseSettings }},
		{"shutdown serves reads only", ap, ShutdownRequestedEvent{},
			func(s State) bool { return s.Lifecycle == ShutdownRequested && s.Web == WebRestOnly }},
		{"restart", ap, RestartRequestedEvent{},
			func(s State) bool { return s.Lifecycle == RestartRequested }},
		{"grace halts", stopping, GraceElapsed{},
			func(s State) bool { return s.Lifecycle == ShutdownHalt }},
		{"stopping ignores persist", stopping, PersistRequested{},
			func(s State) bool { return s.Lifecycle == ShutdownRequested }},
		{"stopping ignores reset", stopping, IntentReceived{atcmd.IntentReset},
			func(s State) bool { return s.Lifecycle == ShutdownRequested }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.Transition(tt.from, tt.event)
			if !tt.check(got) {
				t.Errorf("Transition(%+v, %T) = %+v", tt.from, tt.event, got)
			}
		})
	}
}

func TestWebTarget(t *testing.T) {
	tests := []struct {
		name string
		s    State
		want WebMode
	}{
		{"disabled wins", State{Wireless: ApActive}, WebDisabled},
		{"waiting for wireless", State{WebEnabled: true, Wireless: StaRequested}, WebRequested},
		{"access point", State{WebEnabled: true, Wireless: ApActive}, WebFullService},
		{"station", State{WebEnabled: true, Wireless: StaActive}, WebFullService},
		{"provisioning", State{WebEnabled: true, Wireless: AutoConnecting}, WebConfigOnly},
		{"restarting", State{WebEnabled: true, Wireless: StaActive, Lifecycle: RestartRequested}, WebRestOnly},
	}
	for _, tt := range tests {
		if got := webTarget(tt.s); got != tt.want {
			t.Errorf("%s: webTarget() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStateStrings(t *testing.T) {
	if Reset.String() != "reset" || AutoRequested.String() != "auto-requested" {
		t.Error("unexpected enum names")
	}
	if got := Lifecycle(42).String(); got != "Lifecycle(42)" {
		t.Errorf("Lifecycle(42) = %q", got)
	}
	b, _ := WebFullService.MarshalText()
	if string(b) != "full-service" {
		t.Errorf("MarshalText() = %q", b)
	}
}
