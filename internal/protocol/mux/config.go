package mux

import (
	"time"

	"github.com/danmuck/serialmux/internal/protocol/control"
	"github.com/danmuck/serialmux/internal/protocol/frame"
)

const (
	ControlChannel = control.ChannelNumber
	MaxChannels    = 255

	DefaultMaxChannels       = 10
	DefaultHeartbeatSynced   = 5000 * time.Millisecond
	DefaultHeartbeatUnsynced = 1000 * time.Millisecond

	// MaxRxAttempts bounds how many ticks a partially received frame may wait
	// for its payload before the receive buffer is dropped.
	MaxRxAttempts = frame.MaxFrameLen
)

// Config defines engine capacity and heartbeat periods.
type Config struct {
	MaxChannels       int
	HeartbeatSynced   time.Duration
	HeartbeatUnsynced time.Duration
}

// DefaultConfig returns the wire-compatible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChannels:       DefaultMaxChannels,
		HeartbeatSynced:   DefaultHeartbeatSynced,
		HeartbeatUnsynced: DefaultHeartbeatUnsynced,
	}
}

// WithDefaults fills zero fields and clamps capacity to the 1-byte channel field.
func (c Config) WithDefaults() Config {
	out := c
	if out.MaxChannels <= 0 {
		out.MaxChannels = DefaultMaxChannels
	}
	if out.MaxChannels > MaxChannels {
		out.MaxChannels = MaxChannels
	}
	if out.HeartbeatSynced <= 0 {
		out.HeartbeatSynced = DefaultHeartbeatSynced
	}
	if out.HeartbeatUnsynced <= 0 {
		out.HeartbeatUnsynced = DefaultHeartbeatUnsynced
	}
	return out
}

func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
