package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/logging"
	"github.com/muurk/remoterelay/internal/settings"
)

var (
	// ErrHalt is returned by Step once the device has shut down.
	ErrHalt = errors.New("device halted")

	// ErrRestart is returned by Step once the device wants a restart.
	ErrRestart = errors.New("device restart requested")
)

// SignalLayout is raised when the settings layout makes invalidation
// impossible.
const SignalLayout byte = 0b11101110

// Store persists settings records.
type Store interface {
	Save(r *settings.Record, cursor *int) error
	Invalidate(addr int) error
	Erase() error
}

// Wireless drives the network interface.
type Wireless interface {
	StartAP(ssid, key string) error
	Connect() error
	AutoConnect() error
	ResetCredentials() error
	Stop() error
}

// Web is told which routes to serve.
type Web interface {
	SetMode(m WebMode)
}

// Signaller shows fault patterns to someone standing next to the device.
type Signaller interface {
	Signal(pattern byte)
}

// Observer receives a state snapshot after every change.
type Observer func(State)

type nopWeb struct{}

func (nopWeb) SetMode(WebMode) {}

type nopSignaller struct{}

func (nopSignaller) Signal(byte) {}

// Orchestrator advances the device state machines. Post may be called from
// any goroutine; Step must only be called from the control loop.
type Orchestrator struct {
	cfg      Config
	ctx      *Context
	wireless Wireless
	web      Web
	signal   Signaller
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	queue     []Event
	observers map[int]Observer
	nextID    int

	started         bool
	connectDeadline time.Time
	graceDeadline   time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

func WithWeb(w Web) Option {
	return func(o *Orchestrator) {
		o.web = w
	}
}

func WithSignaller(s Signaller) Option {
	return func(o *Orchestrator) {
		o.signal = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// NewOrchestrator starts from the state implied by the settings in ctx.
func NewOrchestrator(ctx *Context, w Wireless, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       DefaultConfig(),
		ctx:       ctx,
		wireless:  w,
		web:       nopWeb{},
		signal:    nopSignaller{},
		logger:    logging.GetLogger(),
		observers: make(map[int]Observer),
		state:     InitialState(ctx.Record.Portal(), ctx.Record.Webservice()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Post queues e for the next Step.
func (o *Orchestrator) Post(e Event) {
	o.mu.Lock()
	o.queue = append(o.queue, e)
	o.mu.Unlock()
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn runs on the control loop and must not block.
func (o *Orchestrator) Subscribe(fn Observer) (cancel func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Step applies queued events in arrival order, fires due timers and makes
// the collaborator calls the new state asks for. It returns ErrHalt or
// ErrRestart once the device has stopped, and a *settings.LayoutError when
// the store hit a fatal layout problem.
func (o *Orchestrator) Step(now time.Time) error {
	o.mu.Lock()
	queue := o.queue
	o.queue = nil
	o.mu.Unlock()

	if err := o.terminal(); err != nil {
		return err
	}

	if !o.started {
		o.started = true
		o.web.SetMode(o.state.Web)
		if err := o.settle(now); err != nil {
			return err
		}
	}

	for _, e := range queue {
		if err := o.apply(e, now); err != nil {
			return err
		}
	}

	s := o.Snapshot()
	if s.Wireless == StaRequested && s.Heartbeat == HeartbeatAwaitingBackground && !now.Before(o.connectDeadline) {
		o.logger.Info("Station connect timed out", zap.Int("attempt", s.Attempts))
		if err := o.apply(ConnectTimedOut{}, now); err != nil {
			return err
		}
	}
	if s.Lifecycle == ShutdownRequested || s.Lifecycle == RestartRequested {
		if !now.Before(o.graceDeadline) {
			if err := o.apply(GraceElapsed{}, now); err != nil {
				return err
			}
		}
	}

	return o.terminal()
}

func (o *Orchestrator) apply(e Event, now time.Time) error {
	prev := o.Snapshot()
	next := o.cfg.Transition(prev, e)
	if next != prev {
		o.logger.Debug("State transition",
			zap.String("event", fmt.Sprintf("%T", e)),
			zap.Stringer("lifecycle", next.Lifecycle),
			zap.Stringer("wireless", next.Wireless),
			zap.Stringer("web", next.Web),
		)
		o.setState(next)
	}
	return o.settle(now)
}

// settle performs the collaborator calls for transient states until the
// state stops changing.
func (o *Orchestrator) settle(now time.Time) error {
	for {
		s := o.Snapshot()
		next, err := o.act(s, now)
		if err != nil {
			return err
		}
		next.WebEnabled = o.ctx.Record.Webservice()
		if w := webTarget(next); w != next.Web {
			next.Web = w
			o.web.SetMode(w)
		}
		if next == s {
			return nil
		}
		o.setState(next)
	}
}

// act handles one transient state.
func (o *Orchestrator) act(s State, now time.Time) (State, error) {
	switch s.Lifecycle {
	case PersistSettings:
		if err := o.ctx.Store.Save(o.ctx.Record, &o.ctx.Cursor); err != nil {
			if fatal := o.fatal(err); fatal != nil {
				return s, fatal
			}
			o.logger.Error("Failed to persist settings", zap.Error(err))
		}
		o.applySettings()
		s.Lifecycle = AfterSetup
		return s, nil

	case DestroySettingsChecksum:
		if err := o.ctx.Store.Invalidate(o.ctx.Cursor); err != nil {
			if fatal := o.fatal(err); fatal != nil {
				return s, fatal
			}
			o.logger.Error("Failed to invalidate settings", zap.Error(err))
		}
		o.installDefaults()
		s.Lifecycle = RestartRequested
		return s, nil

	case EraseSettings:
		if err := o.ctx.Store.Erase(); err != nil {
			o.logger.Error("Failed to erase settings", zap.Error(err))
		}
		o.installDefaults()
		s.Lifecycle = RestartRequested
		return s, nil

	case Restore:
		if err := o.wireless.ResetCredentials(); err != nil {
			o.logger.Warn("Failed to reset wireless credentials", zap.Error(err))
		}
		s.Desired = ApRequested
		s.Wireless = ApRequested
		s.Heartbeat = HeartbeatNone
		s.Attempts = 0
		s.Lifecycle = AfterSetup
		return s, nil

	case Reset:
		s.Wireless = s.Desired
		s.Heartbeat = HeartbeatNone
		s.Attempts = 0
		s.Lifecycle = AfterSetup
		return s, nil

	case ShutdownRequested, RestartRequested:
		if o.graceDeadline.IsZero() {
			o.graceDeadline = now.Add(o.cfg.ShutdownGrace)
			o.logger.Info("Stopping after grace period",
				zap.Stringer("lifecycle", s.Lifecycle),
				zap.Duration("grace", o.cfg.ShutdownGrace),
			)
		}

	case ShutdownHalt, ShutdownRestart:
		if s.Wireless != Off {
			if err := o.wireless.Stop(); err != nil {
				o.logger.Warn("Failed to stop wireless", zap.Error(err))
			}
			s.Wireless = Off
			return s, nil
		}
	}

	return o.actWireless(s, now), nil
}

func (o *Orchestrator) actWireless(s State, now time.Time) State {
	switch s.Wireless {
	case ApRequested:
		rec := o.ctx.Record
		if err := o.wireless.StartAP(rec.SSIDString(), rec.WPAKeyString()); err != nil {
			o.logger.Error("Failed to start access point", zap.Error(err))
			s.Wireless = Off
			return s
		}
		o.logger.Info("Access point started", zap.String("ssid", rec.SSIDString()))
		s.Wireless = ApActive

	case StaRequested:
		if s.Heartbeat != HeartbeatNone {
			return s
		}
		s.Attempts++
		if err := o.wireless.Connect(); err != nil {
			o.logger.Warn("Station connect failed", zap.Int("attempt", s.Attempts), zap.Error(err))
		}
		o.connectDeadline = now.Add(o.cfg.ConnectInterval)
		s.Heartbeat = HeartbeatAwaitingBackground

	case AutoRequested:
		if err := o.wireless.AutoConnect(); err != nil {
			o.logger.Error("Failed to start automatic provisioning", zap.Error(err))
		}
		s.Wireless = AutoConnecting
	}
	return s
}

// fatal signals and halts on layout errors and returns them; other errors
// yield nil.
func (o *Orchestrator) fatal(err error) error {
	var layoutErr *settings.LayoutError
	if !errors.As(err, &layoutErr) {
		return nil
	}
	o.logger.Error("Settings layout violation, halting", zap.Error(err))
	o.signal.Signal(SignalLayout)

	s := o.Snapshot()
	s.Lifecycle = ShutdownHalt
	o.setState(s)
	return err
}

func (o *Orchestrator) installDefaults() {
	*o.ctx.Record = *settings.Defaults()
	o.ctx.Cursor = 0
	o.applySettings()
}

// applySettings pushes logging flags of the current record.
func (o *Orchestrator) applySettings() {
	logging.SetDebug(o.ctx.Record.Debug())
	logging.SetSerial(o.ctx.Record.Serial())
}

func (o *Orchestrator) terminal() error {
	switch o.Snapshot().Lifecycle {
	case ShutdownHalt:
		return ErrHalt
	case ShutdownRestart:
		return ErrRestart
	}
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	observers := make([]Observer, 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}
