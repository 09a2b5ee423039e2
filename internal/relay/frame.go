package relay

import (
	"errors"
	"fmt"
	"strings"
)

// Frame layout of the LC-Tech relay boards:
//
//	[0]  0xA0      Start byte
//	[1]  channel   1-based channel number
//	[2]  mode      0x00 open (off), 0x01 closed (on)
//	[3]  checksum  Sum of bytes 0-2, truncated to 8 bits
const (
	FrameStart = 0xA0
	FrameSize  = 4

	ModeOff = 0x00
	ModeOn  = 0x01
)

// MaxChannels is the largest board the frame format is used with.
const MaxChannels = 4

var (
	ErrInvalidChannel = errors.New("invalid relay channel")
	ErrInvalidMode    = errors.New("invalid relay mode")
	ErrBadFrame       = errors.New("malformed relay frame")
)

// BuildFrame returns the frame switching channel on or off.
func BuildFrame(channel int, on bool) ([]byte, error) {
	if channel < 1 || channel > MaxChannels {
		return nil, fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidChannel, channel, MaxChannels)
	}

	mode := byte(ModeOff)
	if on {
		mode = ModeOn
	}
	ch := byte(channel)
	return []byte{FrameStart, ch, mode, FrameStart + ch + mode}, nil
}

// ParseFrame decodes a frame built by BuildFrame.
func ParseFrame(frame []byte) (channel int, on bool, err error) {
	if len(frame) != FrameSize {
		return 0, false, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(frame))
	}
	if frame[0] != FrameStart {
		return 0, false, fmt.Errorf("%w: start byte 0x%02x", ErrBadFrame, frame[0])
	}
	if sum := frame[0] + frame[1] + frame[2]; sum != frame[3] {
		return 0, false, fmt.Errorf("%w: checksum 0x%02x, want 0x%02x", ErrBadFrame, frame[3], sum)
	}
	if frame[2] > ModeOn {
		return 0, false, fmt.Errorf("%w: 0x%02x", ErrInvalidMode, frame[2])
	}
	channel = int(frame[1])
	if channel < 1 || channel > MaxChannels {
		return 0, false, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return channel, frame[2] == ModeOn, nil
}

// ParseMode maps the API words "on" and "off", in any letter case, to a
// relay state.
func ParseMode(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "on"):
		return true, nil
	case strings.EqualFold(s, "off"):
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ModeName is the inverse of ParseMode.
func ModeName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
