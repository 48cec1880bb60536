package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Dialer produces a fresh connection for every (re)connect attempt.
// Listening kinds bind once in NewDialer and accept on each Dial.
type Dialer interface {
	Dial(ctx context.Context) (*Conn, error)
	Close() error
}

// NewDialer builds the dialer for ep.
func NewDialer(ep Endpoint, cfg Config) (Dialer, error) {
	cfg = cfg.WithDefaults()
	switch ep.Kind {
	case KindTCP:
		return dialFunc(func(ctx context.Context) (*Conn, error) {
			return DialTCP(ctx, ep.Address, cfg)
		}), nil
	case KindTCPListen:
		ln, err := net.Listen("tcp", ep.Address)
		if err != nil {
			return nil, fmt.Errorf("transport: listen tcp %s: %w", ep.Address, err)
		}
		return &tcpListenDialer{ln: ln, cfg: cfg}, nil
	case KindSerial:
		return dialFunc(func(context.Context) (*Conn, error) {
			return OpenSerial(ep.Device, ep.Baud, cfg)
		}), nil
	case KindWebSocket:
		url := ep.Address
		if !strings.Contains(url, "://") {
			path := ep.Path
			if path == "" {
				path = DefaultWebSocketPath
			}
			url = "ws://" + url + path
		}
		return dialFunc(func(ctx context.Context) (*Conn, error) {
			return DialWebSocket(ctx, url, cfg)
		}), nil
	case KindWebSocketListen:
		return ListenWebSocket(ep.Address, ep.Path, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ep.Kind)
	}
}

type dialFunc func(ctx context.Context) (*Conn, error)

func (f dialFunc) Dial(ctx context.Context) (*Conn, error) {
	return f(ctx)
}

func (dialFunc) Close() error {
	return nil
}

type tcpListenDialer struct {
	ln  net.Listener
	cfg Config
}

func (d *tcpListenDialer) Dial(ctx context.Context) (*Conn, error) {
	return AcceptTCP(ctx, d.ln, d.cfg)
}

func (d *tcpListenDialer) Addr() net.Addr {
	return d.ln.Addr()
}

func (d *tcpListenDialer) Close() error {
	return d.ln.Close()
}

// Dial makes WebSocketListener usable wherever a Dialer is expected.
func (l *WebSocketListener) Dial(ctx context.Context) (*Conn, error) {
	return l.Accept(ctx)
}
