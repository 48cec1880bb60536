package transport

import "time"

const (
	DefaultBufferSize    = 4096
	DefaultWriteTimeout  = 50 * time.Millisecond
	DefaultDialTimeout   = 5 * time.Second
	DefaultBaud          = 115200
	DefaultWebSocketPath = "/mux"

	readChunkSize = 512
)

// Kind names a transport flavour in link profiles.
type Kind string

const (
	KindTCP             Kind = "tcp"
	KindTCPListen       Kind = "tcp-listen"
	KindSerial          Kind = "serial"
	KindWebSocket       Kind = "websocket"
	KindWebSocketListen Kind = "websocket-listen"
)

// Kinds lists every supported transport kind.
func Kinds() []Kind {
	return []Kind{KindTCP, KindTCPListen, KindSerial, KindWebSocket, KindWebSocketListen}
}

func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Endpoint says where a link connects to or listens on.
type Endpoint struct {
	Kind    Kind
	Address string
	Path    string
	Device  string
	Baud    int
}

// Config tunes buffering and deadlines shared by every adapter.
type Config struct {
	BufferSize   int
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:   DefaultBufferSize,
		WriteTimeout: DefaultWriteTimeout,
		DialTimeout:  DefaultDialTimeout,
	}
}

func (c Config) WithDefaults() Config {
	out := c
	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = DefaultWriteTimeout
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}
	return out
}
