package transport

import (
	"context"
	"fmt"
	"net"
)

// DialTCP connects to address and wraps the socket.
func DialTCP(ctx context.Context, address string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	d := net.Dialer{Timeout: cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %s: %w", address, err)
	}
	setNoDelay(nc)
	return NewConn(nc, KindTCP, cfg), nil
}

// AcceptTCP waits for one inbound connection on ln. Cancelling ctx stops the
// wait without closing ln.
func AcceptTCP(ctx context.Context, ln net.Listener, cfg Config) (*Conn, error) {
	type result struct {
		nc  net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		nc, err := ln.Accept()
		ch <- result{nc: nc, err: err}
	}()
	select {
	case <-ctx.Done():
		// A connection accepted after cancellation is closed, not leaked.
		go func() {
			if r := <-ch; r.nc != nil {
				_ = r.nc.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("transport: accept tcp: %w", r.err)
		}
		setNoDelay(r.nc)
		return NewConn(r.nc, KindTCPListen, cfg), nil
	}
}

func setNoDelay(nc net.Conn) {
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}
