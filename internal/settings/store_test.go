package settings

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/remoterelay/internal/checksum"
	"github.com/muurk/remoterelay/internal/flash"
)

type recordingSignaller struct {
	patterns []byte
}

func (s *recordingSignaller) Signal(p byte) { s.patterns = append(s.patterns, p) }

type fixture struct {
	mem    *flash.Memory
	eeprom *flash.EEPROM
	store  *Store
	sig    *recordingSignaller
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	mem := flash.NewMemory(flash.SectorSize)
	eeprom, err := flash.NewEEPROM(mem)
	if err != nil {
		t.Fatalf("NewEEPROM() error = %v", err)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	sig := &recordingSignaller{}
	opts = append([]Option{WithLogger(zap.New(core)), WithSignaller(sig)}, opts...)

	return &fixture{
		mem:    mem,
		eeprom: eeprom,
		store:  New(eeprom, opts...),
		sig:    sig,
		logs:   logs,
	}
}

func (f *fixture) slot(addr int) []byte {
	return slices.Clone(f.mem.Bytes()[addr : addr+SlotSize])
}

// ignoreMark checksums a record as if its wear-level mark were intact, so
// shifting the mark never changes the result.
func ignoreMark(b []byte) byte {
	c := slices.Clone(b)
	c[0] |= markMask
	return checksum.CRC8(c)
}

func TestLoadBlankRegion(t *testing.T) {
	f := newFixture(t)

	r, addr, found := f.store.Load(0)
	if found {
		t.Fatal("Load() found a record in a blank region")
	}
	if addr != 0 {
		t.Errorf("addr = %d, want 0", addr)
	}
	if *r != *Defaults() {
		t.Error("Load() should return the defaults")
	}
	if !slices.Equal(f.sig.patterns, []byte{SignalDefaults}) {
		t.Errorf("signalled %08b, want %08b", f.sig.patterns, SignalDefaults)
	}
	if n := f.logs.FilterMessage("Settings not found, loading defaults").Len(); n != 1 {
		t.Errorf("defaults log entries = %d, want 1", n)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)

	r, cursor, _ := f.store.Load(0)
	r.SetLogin("operator")
	r.SetDebug(true)

	if err := f.store.Save(r, &cursor); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if cursor != SlotSize {
		t.Errorf("cursor = %d, want %d", cursor, SlotSize)
	}

	got, addr, found := f.store.Load(0)
	if !found {
		t.Fatal("Load() did not find the saved record")
	}
	if addr != cursor {
		t.Errorf("Load() addr = %d, want %d", addr, cursor)
	}
	if *got != *r {
		t.Errorf("Load() = %+v, want %+v", got, r)
	}
}

func TestLoadIdempotent(t *testing.T) {
	f := newFixture(t)
	r, cursor, _ := f.store.Load(0)
	for i := 0; i < 3; i++ {
		r.SetSSID("net-" + string(rune('a'+i)))
		if err := f.store.Save(r, &cursor); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	first, addr1, _ := f.store.Load(0)
	second, addr2, _ := f.store.Load(0)
	if addr1 != addr2 || *first != *second {
		t.Errorf("Load() not idempotent: %d vs %d", addr1, addr2)
	}
	if addr1 != cursor || first.SSIDString() != "net-c" {
		t.Errorf("Load() = %q at %d, want net-c at %d", first.SSIDString(), addr1, cursor)
	}
}

func TestSaveInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	r, cursor, _ := f.store.Load(0)

	_ = f.store.Save(r, &cursor)
	first := cursor
	_ = f.store.Save(r, &cursor)

	var old Record
	_ = old.UnmarshalBinary(f.mem.Bytes()[first:])
	if old.Mark() == MarkValid {
		t.Error("previous slot still carries a valid mark")
	}
	if _, addr, _ := f.store.Load(first); addr != cursor {
		t.Errorf("Load(%d) = %d, want it to skip to %d", first, addr, cursor)
	}
}

func TestSaveWrapAround(t *testing.T) {
	f := newFixture(t)
	r, cursor, _ := f.store.Load(0)

	slots := f.store.Slots()
	for i := 1; i < slots; i++ {
		if err := f.store.Save(r, &cursor); err != nil {
			t.Fatalf("Save() #%d error = %v", i, err)
		}
		if cursor != i*SlotSize {
			t.Fatalf("cursor after save #%d = %d, want %d", i, cursor, i*SlotSize)
		}
	}
	if r.EraseCycles() != 0 {
		t.Fatalf("erase cycles before wrap = %d", r.EraseCycles())
	}

	if err := f.store.Save(r, &cursor); err != nil {
		t.Fatalf("wrapping Save() error = %v", err)
	}
	if cursor != 0 {
		t.Errorf("cursor after wrap = %d, want 0", cursor)
	}
	if r.EraseCycles() != 1 {
		t.Errorf("erase cycles after wrap = %d, want 1", r.EraseCycles())
	}

	got, addr, found := f.store.Load(0)
	if !found || addr != 0 || got.EraseCycles() != 1 {
		t.Errorf("Load() after wrap = (cycles %d, %d, %v)", got.EraseCycles(), addr, found)
	}

	// Slot 0 was blank, so the first overwrite of an old slot is what
	// costs the erase.
	if f.mem.Erases != 0 {
		t.Errorf("erases after wrap = %d, want 0", f.mem.Erases)
	}
	if err := f.store.Save(r, &cursor); err != nil {
		t.Fatalf("Save() after wrap error = %v", err)
	}
	if f.mem.Erases != 1 {
		t.Errorf("erases = %d, want 1", f.mem.Erases)
	}
	if _, addr, _ := f.store.Load(0); addr != SlotSize {
		t.Errorf("Load() = %d, want %d", addr, SlotSize)
	}
}

func TestInvalidateOnlyClearsBits(t *testing.T) {
	f := newFixture(t)
	r, cursor, _ := f.store.Load(0)
	_ = f.store.Save(r, &cursor)

	before := f.slot(cursor)
	if err := f.store.Invalidate(cursor); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	after := f.slot(cursor)

	for i := range after {
		if after[i]&^before[i] != 0 {
			t.Fatalf("byte %d went from %08b to %08b", i, before[i], after[i])
		}
	}
	if f.mem.Erases != 0 {
		t.Error("Invalidate() must not erase")
	}
	if _, _, found := f.store.Load(0); found {
		t.Error("Load() still finds the invalidated record")
	}
}

func TestInvalidateBlankSlotIsNoop(t *testing.T) {
	f := newFixture(t)
	programs := f.mem.Programs

	if err := f.store.Invalidate(0); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if f.mem.Programs != programs {
		t.Error("Invalidate() of a blank slot wrote to flash")
	}
}

func TestInvalidateChecksumCollision(t *testing.T) {
	f := newFixture(t, WithChecksum(ignoreMark))

	r, cursor, _ := f.store.Load(0)
	r.SetWPAKey("a-much-longer-key")
	r.SetWPAKey("k")
	if err := f.store.Save(r, &cursor); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	addr := cursor
	storedCRC := f.mem.Bytes()[addr+RecordSize]

	if err := f.store.Invalidate(addr); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	raw := f.slot(addr)
	if raw[offWPAKey+2] != 0 {
		t.Errorf("inert wpa_key byte = %q, want 0", raw[offWPAKey+2])
	}
	if raw[offWPAKey+3] != 'u' {
		t.Error("only one inert byte may be zeroed")
	}
	if raw[RecordSize] != storedCRC {
		t.Error("stored checksum must stay untouched on collision")
	}
	if ignoreMark(raw[:RecordSize]) == raw[RecordSize] {
		t.Error("slot still validates after invalidation")
	}

	var got Record
	_ = got.UnmarshalBinary(raw)
	if got.WPAKeyString() != "k" {
		t.Errorf("readable wpa_key changed to %q", got.WPAKeyString())
	}
	if _, at, found := f.store.Load(addr); found && at == addr {
		t.Error("Load() at the invalidated address returned it")
	}
}

func TestInvalidateCollisionWithoutInertByte(t *testing.T) {
	f := newFixture(t, WithChecksum(ignoreMark))

	r, cursor, _ := f.store.Load(0)
	if err := f.store.Save(r, &cursor); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	err := f.store.Invalidate(cursor)

	var layoutErr *LayoutError
	if !errors.As(err, &layoutErr) {
		t.Fatalf("Invalidate() error = %v, want *LayoutError", err)
	}
	if layoutErr.Addr != cursor {
		t.Errorf("LayoutError.Addr = %d, want %d", layoutErr.Addr, cursor)
	}
	var still Record
	_ = still.UnmarshalBinary(f.mem.Bytes()[cursor:])
	if still.Mark() != MarkValid {
		t.Error("slot must be left untouched when no inert byte exists")
	}
}

func TestClearHighestDiff(t *testing.T) {
	tests := []struct {
		name    string
		stored  byte
		shifted byte
		want    byte
	}{
		{"clears highest differing set bit", 0b1010_0000, 0b0110_0000, 0b0010_0000},
		{"would become equal", 0b1000_0001, 0b0000_0001, 0b1000_0001},
		{"no set bit differs", 0b0000_0001, 0b0000_0011, 0b0000_0001},
		{"lower bits also differ", 0b1111_0000, 0b0000_1111, 0b0111_0000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clearHighestDiff(tt.stored, tt.shifted); got != tt.want {
				t.Errorf("clearHighestDiff(%08b, %08b) = %08b, want %08b", tt.stored, tt.shifted, got, tt.want)
			}
		})
	}
}

// failingInvalidate accepts the new slot but loses power before the old
// one is invalidated.
type failingInvalidate struct {
	*flash.EEPROM
}

func (failingInvalidate) ClearBits(int64, []byte) error { return errors.New("power lost") }

func TestSaveInterruptedBeforeInvalidate(t *testing.T) {
	mem := flash.NewMemory(flash.SectorSize)
	eeprom, _ := flash.NewEEPROM(mem)
	good := New(eeprom, WithLogger(zap.NewNop()))

	r, cursor, _ := good.Load(0)
	r.SetLogin("first")
	_ = good.Save(r, &cursor)
	first := cursor

	broken := New(failingInvalidate{eeprom}, WithLogger(zap.NewNop()))
	r.SetLogin("second")
	if err := broken.Save(r, &cursor); err == nil {
		t.Fatal("Save() should report the failed invalidation")
	}

	got, addr, found := good.Load(0)
	if !found || addr != first || got.LoginString() != "first" {
		t.Errorf("Load() = (%q, %d, %v), want the older consistent copy", got.LoginString(), addr, found)
	}
	if _, addr, found := good.Load(first + SlotSize); !found || addr != cursor {
		t.Error("new slot should be valid as well")
	}
}

func TestStoreErase(t *testing.T) {
	f := newFixture(t)
	r, cursor, _ := f.store.Load(0)
	_ = f.store.Save(r, &cursor)

	if err := f.store.Erase(); err != nil {
		t.Fatalf("Erase() error = %v", err)
	}
	if _, addr, found := f.store.Load(0); found || addr != 0 {
		t.Errorf("Load() after erase = (%d, %v), want defaults", addr, found)
	}
}

func TestGeometry(t *testing.T) {
	f := newFixture(t)
	if f.store.SlotSize() != 143 {
		t.Errorf("SlotSize() = %d, want 143", f.store.SlotSize())
	}
	if f.store.Slots() != 27 {
		t.Errorf("Slots() = %d, want 27", f.store.Slots())
	}
}
