package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestGetLogRecordsInfo(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	Info("Settings loaded from flash")
	Debug("hidden detail")

	got := GetLog()
	if !strings.Contains(got, "Settings loaded from flash") {
		t.Errorf("GetLog() missing info entry:\n%s", got)
	}
	if strings.Contains(got, "hidden detail") {
		t.Error("debug entry recorded while debug is off")
	}
}

func TestSetDebug(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer SetDebug(false)

	SetDebug(true)
	if !DebugEnabled() {
		t.Fatal("DebugEnabled() = false after SetDebug(true)")
	}
	Debug("frame detail")
	if !strings.Contains(GetLog(), "frame detail") {
		t.Error("debug entry missing while debug is on")
	}

	SetDebug(false)
	if DebugEnabled() {
		t.Error("DebugEnabled() = true after SetDebug(false)")
	}
}

func TestSetSerialEchoes(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	var buf bytes.Buffer
	SetSerialWriter(&buf)
	defer SetSerialWriter(nil)

	Info("not echoed")
	SetSerial(true)
	Info("echoed")
	SetSerial(false)

	if strings.Contains(buf.String(), "not echoed") {
		t.Error("line echoed before SetSerial(true)")
	}
	if !strings.Contains(buf.String(), "echoed") {
		t.Errorf("echo output = %q", buf.String())
	}
}

func TestRingKeepsLatest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(fmt.Sprintf("line %d", i))
	}

	got := r.Lines()
	want := []string{"line 2", "line 3", "line 4"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}

func TestRingPartial(t *testing.T) {
	r := NewRing(3)
	r.Add("only")
	if got := r.Lines(); len(got) != 1 || got[0] != "only" {
		t.Errorf("Lines() = %v", got)
	}
}

func TestGetLogBounded(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	for i := 0; i < DiagnosticLines+20; i++ {
		Info("entry", zap.Int("i", i))
	}
	if n := len(strings.Split(GetLog(), "\n")); n != DiagnosticLines {
		t.Errorf("GetLog() has %d lines, want %d", n, DiagnosticLines)
	}
}

func TestHexAndASCIIDump(t *testing.T) {
	data := []byte{0xA0, 0x01, 0x01, 'O', 'K'}
	if got := hexDump(data); got != "a001014f4b" {
		t.Errorf("hexDump() = %q", got)
	}
	if got := asciiDump(data); got != "...OK" {
		t.Errorf("asciiDump() = %q", got)
	}
}
