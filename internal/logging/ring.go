package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Ring keeps the most recent lines in a fixed-size buffer.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func NewRing(size int) *Ring {
	return &Ring{lines: make([]string, size)}
}

func (r *Ring) Add(line string) {
	r.mu.Lock()
	r.lines[r.next] = line
	r.next++
	if r.next == len(r.lines) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Lines returns the kept lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]string(nil), r.lines[:r.next]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	return append(out, r.lines[:r.next]...)
}

// ringCore encodes entries as console lines into a Ring.
type ringCore struct {
	zapcore.LevelEnabler
	enc  zapcore.Encoder
	ring *Ring
}

func newRingCore(r *Ring, enab zapcore.LevelEnabler) zapcore.Core {
	return &ringCore{LevelEnabler: enab, enc: plainEncoder(), ring: r}
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &ringCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone(), ring: c.ring}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *ringCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ringCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	c.ring.Add(strings.TrimSuffix(buf.String(), "\n"))
	buf.Free()
	return nil
}

func (c *ringCore) Sync() error { return nil }
