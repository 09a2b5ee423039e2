package device

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/atcmd"
	"github.com/muurk/remoterelay/internal/logging"
)

// DefaultTick paces the control loop.
const DefaultTick = 20 * time.Millisecond

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("control loop stopped")

type request struct {
	fn   func(*Context) error
	done chan error
}

// Loop is the single goroutine that owns a Context. Each iteration takes
// at most one serial line, runs at most one queued request and then steps
// the orchestrator.
type Loop struct {
	ctx        *Context
	recognizer *atcmd.Recognizer
	tick       time.Duration
	logger     *zap.Logger

	requests chan request
	stopped  chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

func WithTick(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.tick = d
	}
}

func WithLoopLogger(lg *zap.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = lg
	}
}

func NewLoop(ctx *Context, rec *atcmd.Recognizer, opts ...LoopOption) *Loop {
	l := &Loop{
		ctx:        ctx,
		recognizer: rec,
		tick:       DefaultTick,
		logger:     logging.GetLogger(),
		requests:   make(chan request),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the loop until ctx is cancelled or the orchestrator stops.
// It returns ErrHalt, ErrRestart, a fatal store error or ctx.Err().
// lines may be nil when there is no serial link.
func (l *Loop) Run(ctx context.Context, lines <-chan string) error {
	defer close(l.stopped)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		var now time.Time
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-ticker.C:
		}

		select {
		case line, ok := <-lines:
			if !ok {
				l.logger.Warn("Serial link closed")
				lines = nil
				break
			}
			l.handleLine(line)
		default:
		}

		select {
		case req := <-l.requests:
			req.done <- req.fn(l.ctx)
		default:
		}

		if err := l.ctx.Orchestrator.Step(now); err != nil {
			return err
		}
	}
}

func (l *Loop) handleLine(line string) {
	res, err := l.recognizer.Recognize(line)
	if err != nil {
		l.logger.Warn("Failed to answer serial command", zap.Error(err))
	}
	if res.Kind == atcmd.Recognized {
		l.ctx.Orchestrator.Post(IntentReceived{Intent: res.Intent})
	}
}

// Do runs fn on the loop goroutine and returns its error. It blocks until
// fn has run, ctx is done or the loop has stopped.
func (l *Loop) Do(ctx context.Context, fn func(*Context) error) error {
	req := request{fn: fn, done: make(chan error, 1)}

	select {
	case l.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	}

	return <-req.done
}

// ReadLines feeds lines from t into the returned channel until ctx is done
// or t fails. The channel is closed on exit.
func ReadLines(ctx context.Context, t atcmd.Transport, logger *zap.Logger) <-chan string {
	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		for {
			line, err := t.ReadLine()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("Serial read failed", zap.Error(err))
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
