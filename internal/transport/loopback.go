package transport

// Loopback is one end of an in-memory link. Writes land in the peer's
// receive buffer; a full buffer yields a short write instead of blocking.
type Loopback struct {
	in   *rxBuffer
	peer *rxBuffer
}

// Pipe returns two connected ends whose receive buffers hold capacity bytes.
func Pipe(capacity int) (*Loopback, *Loopback) {
	a, b := newRxBuffer(capacity), newRxBuffer(capacity)
	return &Loopback{in: a, peer: b}, &Loopback{in: b, peer: a}
}

func (l *Loopback) Write(p []byte) (int, error) {
	if err := l.in.error(); err != nil {
		return 0, err
	}
	return l.peer.offer(p)
}

func (l *Loopback) Available() int {
	return l.in.available()
}

func (l *Loopback) Read(p []byte) (int, error) {
	return l.in.read(p)
}

func (l *Loopback) Err() error {
	return l.in.error()
}

// Close shuts both directions; the peer observes ErrClosed.
func (l *Loopback) Close() error {
	l.in.fail(ErrClosed)
	l.peer.fail(ErrClosed)
	return nil
}
