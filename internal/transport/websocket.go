package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// wsStream presents binary WebSocket messages as a byte stream. Message
// boundaries carry no meaning; frames may span or share messages.
type wsStream struct {
	ws  *websocket.Conn
	cur io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.cur == nil {
			mt, r, err := s.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			s.cur = r
		}
		n, err := s.cur.Read(p)
		if errors.Is(err, io.EOF) {
			s.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) SetWriteDeadline(t time.Time) error {
	return s.ws.SetWriteDeadline(t)
}

func (s *wsStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.ws.Close()
}

// DialWebSocket connects to a ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, url string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial websocket %s: %w", url, err)
	}
	return NewConn(&wsStream{ws: ws}, KindWebSocket, cfg), nil
}

// WebSocketListener accepts one mux peer at a time over HTTP upgrade.
type WebSocketListener struct {
	cfg      Config
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	accepted chan *Conn
}

// ListenWebSocket serves upgrades on address at path.
func ListenWebSocket(address, path string, cfg Config) (*WebSocketListener, error) {
	if path == "" {
		path = DefaultWebSocketPath
	}
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: listen websocket %s: %w", address, err)
	}
	l := &WebSocketListener{
		cfg: cfg.WithDefaults(),
		ln:  ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readChunkSize,
			WriteBufferSize: readChunkSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		accepted: make(chan *Conn, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handleUpgrade)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("address", address).Msg("websocket listener stopped")
		}
	}()
	return l, nil
}

func (l *WebSocketListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn := NewConn(&wsStream{ws: ws}, KindWebSocketListen, l.cfg)
	select {
	case l.accepted <- conn:
	default:
		log.Warn().Str("remote", r.RemoteAddr).Msg("websocket peer rejected, link busy")
		_ = conn.Close()
	}
}

// Addr is the bound listen address.
func (l *WebSocketListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept waits for the next upgraded peer.
func (l *WebSocketListener) Accept(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn := <-l.accepted:
		return conn, nil
	}
}

func (l *WebSocketListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}
