package mux

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine is one endpoint of a mux link.
type Engine struct {
	maxChannels       int
	heartbeatSynced   uint32
	heartbeatUnsynced uint32

	stream   Stream
	log      zerolog.Logger
	observer Observer

	tx         []Channel
	rx         []Channel
	pending    []Channel
	numTx      int
	numRx      int
	numPending int

	sync  syncState
	recv  receiveState
	stats Stats
}

// Option customizes an Engine at construction.
type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// New builds an engine over stream. The stream is borrowed: the engine
// never closes it.
func New(stream Stream, cfg Config, opts ...Option) *Engine {
	cfg = cfg.WithDefaults()
	e := &Engine{
		maxChannels:       cfg.MaxChannels,
		heartbeatSynced:   millis(cfg.HeartbeatSynced),
		heartbeatUnsynced: millis(cfg.HeartbeatUnsynced),
		stream:            stream,
		log:               log.Logger.With().Str("component", "mux").Logger(),
		observer:          nopObserver{},
		tx:                make([]Channel, cfg.MaxChannels),
		rx:                make([]Channel, cfg.MaxChannels),
		pending:           make([]Channel, cfg.MaxChannels),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sync = newSyncState(e.onSyncChanged)
	return e
}

// Process runs one tick: heartbeat, receive, then pending subscriptions.
// now is the caller's millisecond clock; it may wrap around.
func (e *Engine) Process(now uint32) {
	e.heartbeat(now)
	e.receive()
	e.flushSubscriptions()
}

func (e *Engine) MaxChannels() int {
	return e.maxChannels
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// ChannelInfo describes one occupied table slot.
type ChannelInfo struct {
	Number uint8  `json:"number,omitempty"`
	Name   string `json:"name"`
	DLC    uint8  `json:"dlc,omitempty"`
}

// Snapshot is a copy of the engine state for status reporting.
type Snapshot struct {
	Synced           bool          `json:"synced"`
	LastSyncCommand  uint32        `json:"last_sync_command_ms"`
	LastSyncResponse uint32        `json:"last_sync_response_ms"`
	MaxChannels      int           `json:"max_channels"`
	TX               []ChannelInfo `json:"tx"`
	RX               []ChannelInfo `json:"rx"`
	Pending          []ChannelInfo `json:"pending"`
	Stats            Stats         `json:"stats"`
}

func (e *Engine) Snapshot() Snapshot {
	out := Snapshot{
		Synced:           e.IsSynced(),
		LastSyncCommand:  e.sync.lastCommand,
		LastSyncResponse: e.sync.lastResponse,
		MaxChannels:      e.maxChannels,
		TX:               make([]ChannelInfo, 0, e.numTx),
		RX:               make([]ChannelInfo, 0, e.numRx),
		Pending:          make([]ChannelInfo, 0, e.numPending),
		Stats:            e.stats,
	}
	for i, ch := range e.tx {
		if ch.DLC != 0 {
			out.TX = append(out.TX, ChannelInfo{Number: uint8(i + 1), Name: ch.Name, DLC: ch.DLC})
		}
	}
	for i, ch := range e.rx {
		if ch.Handler != nil {
			out.RX = append(out.RX, ChannelInfo{Number: uint8(i + 1), Name: ch.Name})
		}
	}
	for _, ch := range e.pending {
		if ch.Handler != nil {
			out.Pending = append(out.Pending, ChannelInfo{Name: ch.Name})
		}
	}
	return out
}
