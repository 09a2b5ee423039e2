package relay

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/logging"
)

// ChannelState is the JSON shape of one channel.
type ChannelState struct {
	Channel int    `json:"channel"`
	Mode    string `json:"mode"`
}

// Board drives the relays by writing frames to the serial link. The board
// cannot be queried, so State reports the last state set.
type Board struct {
	w        io.Writer
	channels int
	logger   *zap.Logger

	mu    sync.Mutex
	state []bool
}

// NewBoard returns a board with channels relays, all assumed off.
func NewBoard(w io.Writer, channels int) (*Board, error) {
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: board with %d channels", ErrInvalidChannel, channels)
	}
	return &Board{
		w:        w,
		channels: channels,
		logger:   logging.GetLogger(),
		state:    make([]bool, channels),
	}, nil
}

func (b *Board) Channels() int { return b.channels }

func (b *Board) Set(channel int, on bool) error {
	if err := b.check(channel); err != nil {
		return err
	}
	frame, err := BuildFrame(channel, on)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	logging.LogRawBytes("Relay frame", frame)
	if _, err := b.w.Write(frame); err != nil {
		return fmt.Errorf("failed to switch channel %d: %w", channel, err)
	}
	b.state[channel-1] = on

	b.logger.Info("Relay switched",
		zap.Int("channel", channel),
		zap.String("mode", ModeName(on)),
	)
	return nil
}

func (b *Board) State(channel int) (bool, error) {
	if err := b.check(channel); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state[channel-1], nil
}

// Status returns the JSON view of channel.
func (b *Board) Status(channel int) (ChannelState, error) {
	on, err := b.State(channel)
	if err != nil {
		return ChannelState{}, err
	}
	return ChannelState{Channel: channel, Mode: ModeName(on)}, nil
}

func (b *Board) check(channel int) error {
	if channel < 1 || channel > b.channels {
		return fmt.Errorf("%w: %d (board has %d)", ErrInvalidChannel, channel, b.channels)
	}
	return nil
}
