package transport

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Conn turns a blocking io.ReadWriteCloser into a non-blocking stream.
type Conn struct {
	rw           io.ReadWriteCloser
	rx           *rxBuffer
	writeTimeout time.Duration
	log          zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn starts the background reader for rw. The Conn owns rw from here on.
func NewConn(rw io.ReadWriteCloser, kind Kind, cfg Config) *Conn {
	cfg = cfg.WithDefaults()
	c := &Conn{
		rw:           rw,
		rx:           newRxBuffer(cfg.BufferSize),
		writeTimeout: cfg.WriteTimeout,
		log:          log.Logger.With().Str("component", "transport").Str("kind", string(kind)).Logger(),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)
	buf := make([]byte, readChunkSize)
	for {
		n, err := c.rw.Read(buf)
		if n > 0 && !c.rx.push(buf[:n]) {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrClosed
			}
			c.log.Debug().Err(err).Msg("reader stopped")
			c.rx.fail(err)
			return
		}
	}
}

// Write sends p under the write deadline. A timeout yields a short count
// without latching; any other failure latches.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.rx.error(); err != nil {
		return 0, err
	}
	if d, ok := c.rw.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	n, err := c.rw.Write(p)
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		c.rx.fail(err)
	}
	return n, err
}

func (c *Conn) Available() int {
	return c.rx.available()
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.rx.read(p)
}

// Err returns the latched failure, nil while the link is healthy.
func (c *Conn) Err() error {
	return c.rx.error()
}

// Close stops the reader and closes the underlying link.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.rx.fail(ErrClosed)
		err = c.rw.Close()
		<-c.done
	})
	return err
}
