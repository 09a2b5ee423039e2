package settings

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/checksum"
	"github.com/muurk/remoterelay/internal/flash"
	"github.com/muurk/remoterelay/internal/logging"
)

// SignalDefaults is raised on the Signaller when no valid record was found.
const SignalDefaults byte = 0b10101010

// Signaller shows a blink pattern on the status LED.
type Signaller interface {
	Signal(pattern byte)
}

// LayoutError reports a record layout that the invalidation protocol
// cannot work with. It is fatal: the device must stop.
type LayoutError struct {
	Addr   int
	Reason string
}

func (e *LayoutError) Error() string {
	if e.Addr < 0 {
		return "settings layout: " + e.Reason
	}
	return fmt.Sprintf("settings layout at 0x%04x: %s", e.Addr, e.Reason)
}

// Store keeps a sequence of records in one flash region. A record is
// written to a fresh slot on every save and older slots are invalidated by
// clearing bits only, so the region is erased once per wrap-around instead
// of once per save.
//
// Store is not safe for concurrent use.
type Store struct {
	medium   flash.Medium
	checksum func([]byte) byte
	logger   *zap.Logger
	signal   Signaller
}

// Option configures a Store.
type Option func(*Store)

// WithChecksum replaces the record checksum. Intended for tests.
func WithChecksum(fn func([]byte) byte) Option {
	return func(s *Store) {
		s.checksum = fn
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func WithSignaller(sig Signaller) Option {
	return func(s *Store) {
		s.signal = sig
	}
}

type nopSignaller struct{}

func (nopSignaller) Signal(byte) {}

// New returns a Store over m.
func New(m flash.Medium, opts ...Option) *Store {
	s := &Store{
		medium:   m,
		checksum: checksum.CRC8,
		logger:   logging.GetLogger(),
		signal:   nopSignaller{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SlotSize is the distance between two slots.
func (s *Store) SlotSize() int { return SlotSize }

// Slots is the number of slots Save cycles through before wrapping.
func (s *Store) Slots() int {
	return (s.wrapAt() + SlotSize - 1) / SlotSize
}

// scanEnd bounds the slot addresses Load looks at.
func (s *Store) scanEnd() int { return int(s.medium.Size()) - SlotSize }

// wrapAt is the first cursor value Save refuses to write at.
func (s *Store) wrapAt() int { return int(s.medium.Size()) - 2*SlotSize }

// Load returns the first valid record at or after start together with its
// address. When the region holds none it returns the factory defaults,
// address 0 and false.
func (s *Store) Load(start int) (*Record, int, bool) {
	buf := make([]byte, SlotSize)
	addr := start
	for addr < s.scanEnd() {
		r, stored, err := s.readSlot(addr, buf)
		if err != nil {
			s.logger.Debug("Unreadable settings slot",
				zap.Int("addr", addr),
				zap.Error(err),
			)
			addr += SlotSize
			continue
		}

		if mark := r.Mark(); mark != MarkValid {
			addr += SlotSize * (4 - bits.OnesCount8(mark))
			continue
		}

		if s.checksum(buf[:RecordSize]) == stored {
			s.logger.Info("Settings loaded from flash",
				zap.Int("addr", addr),
				zap.Uint8("erase_cycles", r.EraseCycles()),
			)
			return r, addr, true
		}
		addr += SlotSize
	}

	s.logger.Info("Settings not found, loading defaults",
		zap.Int("start", start),
	)
	s.signal.Signal(SignalDefaults)
	return Defaults(), 0, false
}

func (s *Store) readSlot(addr int, buf []byte) (*Record, byte, error) {
	if _, err := s.medium.ReadAt(buf, int64(addr)); err != nil {
		return nil, 0, err
	}
	r := &Record{}
	if err := r.UnmarshalBinary(buf); err != nil {
		return nil, 0, err
	}
	return r, buf[RecordSize], nil
}

// Save writes r into the slot after *cursor and invalidates the slot the
// cursor pointed at. The cursor wraps to 0 before it would reach the last
// slot; each wrap bumps the erase cycle counter of r.
//
// The new slot is committed before the old one is invalidated. A power
// loss in between leaves two valid slots and Load(0) returns the lower one.
func (s *Store) Save(r *Record, cursor *int) error {
	prev := *cursor

	next := prev + SlotSize
	if next >= s.wrapAt() {
		r.SetEraseCycles(r.EraseCycles() + 1)
		next = 0
		s.logger.Info("Settings region wrapped",
			zap.Uint8("erase_cycles", r.EraseCycles()),
		)
	}
	r.SetMark(MarkValid)

	buf := r.encode(make([]byte, 0, SlotSize))
	buf = append(buf, s.checksum(buf))

	if err := s.medium.Write(int64(next), buf); err != nil {
		return fmt.Errorf("failed to stage settings at 0x%04x: %w", next, err)
	}
	if err := s.medium.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	*cursor = next

	s.logger.Debug("Settings saved",
		zap.Int("addr", next),
		zap.Int("previous", prev),
	)

	if prev == next {
		return nil
	}
	return s.Invalidate(prev)
}

// Invalidate makes the slot at addr unloadable using bit clears only.
// A slot that is already invalid is left alone.
func (s *Store) Invalidate(addr int) error {
	if addr < 0 || addr >= s.scanEnd() {
		return nil
	}

	buf := make([]byte, SlotSize)
	r, stored, err := s.readSlot(addr, buf)
	if err != nil || r.Mark() != MarkValid || s.checksum(buf[:RecordSize]) != stored {
		return nil
	}

	r.SetMark(r.Mark() << 1)
	shifted := s.checksum(r.encode(make([]byte, 0, SlotSize)))

	if shifted == stored {
		if !zeroInertByte(r) {
			return &LayoutError{Addr: addr, Reason: "no inert byte left to break the checksum"}
		}
		s.logger.Debug("Checksum collision on invalidate, zeroed inert byte",
			zap.Int("addr", addr),
		)
	} else if c := clearHighestDiff(stored, shifted); c != stored {
		if err := s.medium.ClearBits(int64(addr+RecordSize), []byte{c}); err != nil {
			return fmt.Errorf("failed to clear checksum at 0x%04x: %w", addr, err)
		}
	}

	if err := s.medium.ClearBits(int64(addr), r.encode(make([]byte, 0, SlotSize))); err != nil {
		return fmt.Errorf("failed to invalidate slot 0x%04x: %w", addr, err)
	}

	s.logger.Debug("Settings slot invalidated", zap.Int("addr", addr))
	return nil
}

// Erase wipes the whole region.
func (s *Store) Erase() error {
	if err := s.medium.Erase(); err != nil {
		return fmt.Errorf("failed to erase settings region: %w", err)
	}
	s.logger.Info("Settings region erased")
	return nil
}

// zeroInertByte zeroes the first non-zero byte found after the terminator
// of a string field, searching fields in layout order.
func zeroInertByte(r *Record) bool {
	for _, f := range r.stringFields() {
		terminated := false
		for i, b := range f {
			switch {
			case b == 0:
				terminated = true
			case terminated:
				f[i] = 0
				return true
			}
		}
	}
	return false
}

// clearHighestDiff clears the highest bit that is set in stored and differs
// from shifted. It returns stored unchanged when no such bit exists or when
// clearing it would make stored equal shifted.
func clearHighestDiff(stored, shifted byte) byte {
	d := stored ^ shifted
	c := stored & d
	if c == 0 {
		return stored
	}
	bit := byte(1) << (bits.Len8(c) - 1)
	if d == bit {
		return stored
	}
	return stored &^ bit
}
