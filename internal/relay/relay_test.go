package relay

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildFrame(t *testing.T) {
	tests := []struct {
		channel int
		on      bool
		want    []byte
	}{
		{1, true, []byte{0xA0, 0x01, 0x01, 0xA2}},
		{1, false, []byte{0xA0, 0x01, 0x00, 0xA1}},
		{2, true, []byte{0xA0, 0x02, 0x01, 0xA3}},
		{4, false, []byte{0xA0, 0x04, 0x00, 0xA4}},
	}

	for _, tt := range tests {
		got, err := BuildFrame(tt.channel, tt.on)
		if err != nil {
			t.Fatalf("BuildFrame(%d, %v) error = %v", tt.channel, tt.on, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("BuildFrame(%d, %v) = % x, want % x", tt.channel, tt.on, got, tt.want)
		}

		ch, on, err := ParseFrame(got)
		if err != nil || ch != tt.channel || on != tt.on {
			t.Errorf("ParseFrame(% x) = (%d, %v, %v)", got, ch, on, err)
		}
	}
}

func TestBuildFrameInvalidChannel(t *testing.T) {
	for _, ch := range []int{0, 5, -1} {
		if _, err := BuildFrame(ch, true); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("BuildFrame(%d) error = %v, want ErrInvalidChannel", ch, err)
		}
	}
}

func TestParseFrameRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"short", []byte{0xA0, 0x01}, ErrBadFrame},
		{"bad start", []byte{0xA1, 0x01, 0x01, 0xA3}, ErrBadFrame},
		{"bad checksum", []byte{0xA0, 0x01, 0x01, 0xA3}, ErrBadFrame},
		{"bad mode", []byte{0xA0, 0x01, 0x02, 0xA3}, ErrInvalidMode},
		{"bad channel", []byte{0xA0, 0x09, 0x01, 0xAA}, ErrInvalidChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseFrame(tt.frame); !errors.Is(err, tt.want) {
				t.Errorf("ParseFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if on, err := ParseMode("on"); err != nil || !on {
		t.Errorf("ParseMode(on) = (%v, %v)", on, err)
	}
	if on, err := ParseMode("off"); err != nil || on {
		t.Errorf("ParseMode(off) = (%v, %v)", on, err)
	}
	if on, err := ParseMode("ON"); err != nil || !on {
		t.Errorf("ParseMode(ON) = (%v, %v)", on, err)
	}
	if _, err := ParseMode("toggle"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("ParseMode(toggle) error = %v", err)
	}
}

func TestBoard(t *testing.T) {
	var link bytes.Buffer
	b, err := NewBoard(&link, 2)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}

	if err := b.Set(2, true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !bytes.Equal(link.Bytes(), []byte{0xA0, 0x02, 0x01, 0xA3}) {
		t.Errorf("wrote % x", link.Bytes())
	}

	st, err := b.Status(2)
	if err != nil || st != (ChannelState{Channel: 2, Mode: "on"}) {
		t.Errorf("Status(2) = (%+v, %v)", st, err)
	}
	if on, _ := b.State(1); on {
		t.Error("channel 1 should still be off")
	}

	if err := b.Set(3, true); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("Set(3) on a 2-channel board error = %v", err)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("uart gone") }

func TestBoardWriteFailureKeepsState(t *testing.T) {
	b, _ := NewBoard(brokenWriter{}, 1)
	if err := b.Set(1, true); err == nil {
		t.Fatal("Set() should fail")
	}
	if on, _ := b.State(1); on {
		t.Error("state changed although the frame was not sent")
	}
}

func TestNewBoardLimits(t *testing.T) {
	if _, err := NewBoard(&bytes.Buffer{}, 5); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("NewBoard(5) error = %v", err)
	}
}
