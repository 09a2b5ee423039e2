package device

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/remoterelay/internal/flash"
	"github.com/muurk/remoterelay/internal/settings"
)

type fakeWireless struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeWireless) record(c string) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return nil
}

func (f *fakeWireless) StartAP(ssid, _ string) error { return f.record("ap " + ssid) }
func (f *fakeWireless) Connect() error               { return f.record("connect") }
func (f *fakeWireless) AutoConnect() error           { return f.record("auto") }
func (f *fakeWireless) ResetCredentials() error      { return f.record("reset-credentials") }
func (f *fakeWireless) Stop() error                  { return f.record("stop") }

func (f *fakeWireless) count(c string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == c {
			n++
		}
	}
	return n
}

type fakeWeb struct {
	modes []WebMode
}

func (f *fakeWeb) SetMode(m WebMode) { f.modes = append(f.modes, m) }

type fakeSignaller struct {
	patterns []byte
}

func (f *fakeSignaller) Signal(p byte) { f.patterns = append(f.patterns, p) }

type fakeRelay struct {
	state map[int]bool
}

func (f *fakeRelay) Set(ch int, on bool) error {
	if f.state == nil {
		f.state = make(map[int]bool)
	}
	f.state[ch] = on
	return nil
}

func (f *fakeRelay) State(ch int) (bool, error) { return f.state[ch], nil }
func (f *fakeRelay) Channels() int              { return 4 }

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (f failingStore) Save(*settings.Record, *int) error { return f.err }
func (f failingStore) Invalidate(int) error              { return f.err }
func (f failingStore) Erase() error                      { return f.err }

type harness struct {
	ctx      *Context
	store    *settings.Store
	mem      *flash.Memory
	wireless *fakeWireless
	web      *fakeWeb
	signal   *fakeSignaller
	history  []State
	now      time.Time

	// serialLogs holds the recognizer's entries once a loop is started.
	serialLogs *observer.ObservedLogs
}

func newHarness(t *testing.T, configure func(*settings.Record)) *harness {
	t.Helper()

	mem := flash.NewMemory(flash.SectorSize)
	eeprom, err := flash.NewEEPROM(mem)
	if err != nil {
		t.Fatalf("NewEEPROM() error = %v", err)
	}
	store := settings.New(eeprom, settings.WithLogger(zap.NewNop()))
	rec, cursor, _ := store.Load(0)
	if configure != nil {
		configure(rec)
	}

	h := &harness{
		store:    store,
		mem:      mem,
		wireless: &fakeWireless{},
		web:      &fakeWeb{},
		signal:   &fakeSignaller{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.ctx = &Context{Record: rec, Cursor: cursor, Store: store, Relay: &fakeRelay{}}
	h.ctx.Orchestrator = NewOrchestrator(h.ctx, h.wireless,
		WithWeb(h.web),
		WithSignaller(h.signal),
		WithLogger(zap.NewNop()),
	)
	h.ctx.Orchestrator.Subscribe(func(s State) { h.history = append(h.history, s) })
	return h
}

// step advances the fake clock by d and steps once.
func (h *harness) step(d time.Duration) error {
	h.now = h.now.Add(d)
	return h.ctx.Orchestrator.Step(h.now)
}

func (h *harness) post(events ...Event) {
	for _, e := range events {
		h.ctx.Orchestrator.Post(e)
	}
}

func (h *harness) state() State { return h.ctx.Orchestrator.Snapshot() }

func (h *harness) sawLifecycle(l Lifecycle) bool {
	for _, s := range h.history {
		if s.Lifecycle == l {
			return true
		}
	}
	return false
}

func (h *harness) sawWireless(w WirelessMode) bool {
	for _, s := range h.history {
		if s.Wireless == w {
			return true
		}
	}
	return false
}

func stationOnly(r *settings.Record) { r.SetPortal(false) }
