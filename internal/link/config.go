package link

import (
	"time"

	"github.com/danmuck/serialmux/internal/protocol/mux"
)

// BackoffConfig shapes the delay between reconnect attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// ChannelSpec is a TX channel created on every fresh engine.
type ChannelSpec struct {
	Name string
	DLC  uint8
}

// Config describes one link.
type Config struct {
	Name   string
	Engine mux.Config
	// Tick is the wall-clock period between Process calls.
	Tick     time.Duration
	Channels []ChannelSpec
	// MaxReconnectAttempts bounds consecutive failed connects; 0 retries forever.
	MaxReconnectAttempts int
	Backoff              BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		Name:   "link",
		Engine: mux.DefaultConfig(),
		Tick:   10 * time.Millisecond,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	out := c
	if out.Name == "" {
		out.Name = def.Name
	}
	out.Engine = out.Engine.WithDefaults()
	if out.Tick <= 0 {
		out.Tick = def.Tick
	}
	if out.MaxReconnectAttempts < 0 {
		out.MaxReconnectAttempts = 0
	}
	if out.Backoff == (BackoffConfig{}) {
		out.Backoff = def.Backoff
	}
	return out
}
