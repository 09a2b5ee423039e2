package atcmd

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/logging"
	"github.com/muurk/remoterelay/internal/lookup"
)

// Prefix starts every command line.
const Prefix = "AT+"

// AckDelay is how long a reset is pretended to take before the link
// acknowledgement is sent.
const AckDelay = 10 * time.Millisecond

// Replies written to the companion.
const (
	ReplyOK            = "OK"
	ReplyWifiConnected = "WIFI CONNECTED"
	ReplyWifiGotIP     = "WIFI GOT IP"
)

// Kind classifies a line.
type Kind int

const (
	Recognized Kind = iota
	Unrecognized
	EmptyLine
)

func (k Kind) String() string {
	switch k {
	case Recognized:
		return "recognized"
	case Unrecognized:
		return "unrecognized"
	case EmptyLine:
		return "empty"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the outcome of recognizing one line.
type Result struct {
	Kind   Kind
	Intent Intent
	Raw    string
}

var tokens = func() *lookup.Table {
	words := make([]string, len(vocabulary))
	for i, v := range vocabulary {
		words[i] = v.token
	}
	return lookup.New(words...)
}()

// Classify maps a line to its intent without side effects. Only single
// commands are understood; a line carrying several concatenated commands
// is unrecognized.
func Classify(line string) Result {
	if line == "" {
		return Result{Kind: EmptyLine}
	}

	rest, ok := strings.CutPrefix(line, Prefix)
	if !ok {
		return Result{Kind: Unrecognized, Raw: line}
	}
	i, ok := tokens.Find(rest)
	if !ok {
		return Result{Kind: Unrecognized, Raw: line}
	}
	return Result{Kind: Recognized, Intent: vocabulary[i].intent, Raw: line}
}

// LineWriter receives replies for the companion.
type LineWriter interface {
	WriteLine(line string) error
}

// Recognizer classifies lines and answers the companion the way it
// expects. It must only be used from one goroutine.
type Recognizer struct {
	out     LineWriter
	logger  *zap.Logger
	version string
	sleep   func(time.Duration)
}

// Option configures a Recognizer.
type Option func(*Recognizer)

func WithLogger(l *zap.Logger) Option {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// WithVersion sets the version reported for AT+GMR.
func WithVersion(v string) Option {
	return func(r *Recognizer) {
		r.version = v
	}
}

// WithSleep replaces time.Sleep for the acknowledgement delay.
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Recognizer) {
		r.sleep = fn
	}
}

func NewRecognizer(out LineWriter, opts ...Option) *Recognizer {
	r := &Recognizer{
		out:     out,
		logger:  logging.GetLogger(),
		version: "dev",
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognize classifies line and writes the replies for it. A reset
// command is acknowledged with the link messages before OK, since the
// companion blocks until it sees them. Lines that are not recognized get
// no reply.
func (r *Recognizer) Recognize(line string) (Result, error) {
	res := Classify(line)

	switch res.Kind {
	case EmptyLine:
		r.logger.Info("Empty line on serial")
		return res, nil
	case Unrecognized:
		r.logger.Info("Unrecognized serial line", zap.String("raw", res.Raw))
		return res, nil
	}

	r.logger.Debug("Serial command received",
		zap.String("command", line),
		zap.Stringer("intent", res.Intent),
	)

	if res.Intent.Resets() {
		r.sleep(AckDelay)
		if err := r.write(ReplyWifiConnected, ReplyWifiGotIP); err != nil {
			return res, err
		}
	}
	if res.Intent == IntentVersion {
		if err := r.write("AT version:" + r.version); err != nil {
			return res, err
		}
	}
	return res, r.write(ReplyOK)
}

func (r *Recognizer) write(lines ...string) error {
	for _, l := range lines {
		if err := r.out.WriteLine(l); err != nil {
			return fmt.Errorf("failed to answer companion: %w", err)
		}
	}
	return nil
}
