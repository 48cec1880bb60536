package mux

import (
	"github.com/danmuck/serialmux/internal/protocol/control"
	"github.com/danmuck/serialmux/internal/protocol/frame"
)

const (
	ChannelNameMaxLen = control.NameMaxLen
	MaxDataLen        = frame.MaxDataLen
)

// Handler receives the payload of a frame on a subscribed channel.
// The payload slice is owned by the handler.
type Handler interface {
	Handle(payload []byte)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(payload []byte)

func (f HandlerFunc) Handle(payload []byte) {
	f(payload)
}

// Channel is one slot of a channel table. A zero Channel is an empty slot.
type Channel struct {
	Name    string
	DLC     uint8
	Handler Handler
}

// Stream is the non-blocking byte transport the engine drives.
//
// Write returns the number of bytes accepted; short counts are not retried.
// Available reports how many bytes Read can return right now. Read never
// waits for more data than is already buffered.
type Stream interface {
	Write(p []byte) (int, error)
	Available() int
	Read(p []byte) (int, error)
}

func validName(name string) bool {
	return len(name) > 0 && len(name) <= ChannelNameMaxLen
}
