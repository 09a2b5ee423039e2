package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/remoterelay/internal/client"
)

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func update(m WatchModel, msg tea.Msg) (WatchModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(WatchModel), cmd
}

func TestWatchModel_States(t *testing.T) {
	states := make(chan client.State, 1)
	errs := make(chan error, 1)
	m := NewWatchModel(WatchSource{Title: "bench1", States: states, Errs: errs})
	m.now = func() time.Time { return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC) }

	if !strings.Contains(m.View(), "Waiting for controller state") {
		t.Errorf("initial view = %q", m.View())
	}

	states <- client.State{Lifecycle: "after-setup", Wireless: "sta-active", Web: "full-service", WebEnabled: true}
	msg := runCmd(t, waitForState(states, errs))
	m, cmd := update(m, msg)
	if cmd == nil {
		t.Error("no follow-up read after a state")
	}

	view := m.View()
	for _, want := range []string{"BENCH1", "after-setup", "sta-active", "full-service", "1 updates", "15:04:05"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModel_StreamEnd(t *testing.T) {
	states := make(chan client.State)
	errs := make(chan error, 1)
	errs <- client.NewAuthError("denied")
	close(states)

	m := NewWatchModel(WatchSource{States: states, Errs: errs})
	m, _ = update(m, runCmd(t, waitForState(states, errs)))
	if !m.closed || !client.IsAuthError(m.err) {
		t.Fatalf("closed = %v, err = %v", m.closed, m.err)
	}
	if !strings.Contains(m.View(), "Authentication failed") {
		t.Errorf("view = %q", m.View())
	}

	if _, ok := runCmd(t, waitForState(states, errs)).(streamClosedMsg); !ok {
		t.Error("closed stream without error did not yield streamClosedMsg")
	}
}

func TestWatchModel_Channels(t *testing.T) {
	relays := map[int]bool{1: false, 2: true}
	var sets []int
	src := WatchSource{
		Channels: 2,
		Label: func(ch int) string {
			if ch == 1 {
				return "Pump"
			}
			return "channel 2"
		},
		Fetch: func(ch int) (*client.ChannelState, error) {
			return &client.ChannelState{Channel: ch, Mode: modeName(relays[ch])}, nil
		},
		Set: func(ch int, on bool) (*client.ChannelState, error) {
			sets = append(sets, ch)
			relays[ch] = on
			return &client.ChannelState{Channel: ch, Mode: modeName(on)}, nil
		},
	}
	m := NewWatchModel(src)

	for ch := 1; ch <= 2; ch++ {
		s, err := src.Fetch(ch)
		m, _ = update(m, channelMsg{channel: ch, state: s, err: err})
	}
	if m.channels[1] || !m.channels[2] {
		t.Fatalf("channels = %v", m.channels)
	}

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	m, _ = update(m, runCmd(t, cmd))
	if !m.channels[1] || len(sets) != 1 || sets[0] != 1 {
		t.Errorf("toggle 1: channels = %v, sets = %v", m.channels, sets)
	}
	if !strings.Contains(m.View(), "Pump") {
		t.Errorf("label missing from view")
	}

	if _, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}}); cmd != nil {
		t.Error("key for a missing channel produced a command")
	}

	failing := m
	failing, _ = update(failing, channelMsg{channel: 2, err: client.NewHTTPError(502, "")})
	if failing.err == nil || !failing.channels[2] {
		t.Error("failed set must keep the last known position and show the error")
	}
}

func TestWatchModel_Keys(t *testing.T) {
	m := NewWatchModel(WatchSource{})

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if !m.Help.ShowAll {
		t.Error("? did not expand help")
	}

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if _, ok := runCmd(t, cmd).(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}

	m, _ = update(m, tea.WindowSizeMsg{Width: 500, Height: 40})
	if m.Width != MaxContentWidth {
		t.Errorf("Width = %d, want clamp to %d", m.Width, MaxContentWidth)
	}
}

func TestRenderError(t *testing.T) {
	out := RenderError("settings", client.NewHTTPError(503, ""), 80)
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "starting, stopping") {
		t.Errorf("RenderError() = %q", out)
	}
	if out := RenderError("x", errors.New("plain"), 80); !strings.Contains(out, "plain") {
		t.Errorf("RenderError(plain) = %q", out)
	}
}

func TestRenderFieldsSorted(t *testing.T) {
	out := RenderFields(map[string]string{"serial": "true", "debug": "false", "login": "admin"})
	d, l, s := strings.Index(out, "debug"), strings.Index(out, "login"), strings.Index(out, "serial")
	if d < 0 || !(d < l && l < s) {
		t.Errorf("fields not sorted:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	var out strings.Builder
	if !ConfirmErase(strings.NewReader("bench1\n"), &out, "bench1") {
		t.Error("matching phrase rejected")
	}
	if ConfirmReset(strings.NewReader("yes\n"), &out, "bench1") {
		t.Error("wrong phrase accepted")
	}
	if Confirm(strings.NewReader(""), &out, "x", nil, "ok") {
		t.Error("empty input accepted")
	}
	if !strings.Contains(out.String(), "Operation cancelled") {
		t.Error("cancel notice missing")
	}
}

func modeName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
