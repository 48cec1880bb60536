package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/testutil/testlog"
)

var (
	_ mux.Stream = (*Conn)(nil)
	_ mux.Stream = (*Loopback)(nil)
)

// waitAvailable polls until s buffers n bytes.
func waitAvailable(t *testing.T, s mux.Stream, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d bytes, have %d", n, s.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func readExactly(t *testing.T, s mux.Stream, n int) []byte {
	t.Helper()
	waitAvailable(t, s, n)
	buf := make([]byte, n)
	got, err := s.Read(buf)
	if err != nil || got != n {
		t.Fatalf("read got=%d err=%v want=%d", got, err, n)
	}
	return buf
}

func TestLoopbackBackpressureYieldsShortWrite(t *testing.T) {
	testlog.Start(t)
	a, b := Pipe(8)

	n, err := a.Write([]byte{1, 2, 3, 4, 5, 6})
	if err != nil || n != 6 {
		t.Fatalf("first write got=%d err=%v", n, err)
	}
	n, err = a.Write([]byte{7, 8, 9, 10})
	if err != nil || n != 2 {
		t.Fatalf("second write got=%d err=%v want=2", n, err)
	}
	if got := readExactly(t, b, 8); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("read got=%v", got)
	}
	if n, _ := a.Write([]byte{9}); n != 1 {
		t.Fatalf("write after drain got=%d want=1", n)
	}
}

func TestLoopbackCloseLatchesBothEnds(t *testing.T) {
	testlog.Start(t)
	a, b := Pipe(8)
	if _, err := a.Write([]byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.Available() != 0 {
		t.Fatalf("closed peer still reports data")
	}
	if !errors.Is(b.Err(), ErrClosed) {
		t.Fatalf("peer err got=%v want=%v", b.Err(), ErrClosed)
	}
	if _, err := b.Write([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("write to closed link got=%v", err)
	}
}

func TestBufferPushWaitsForRoom(t *testing.T) {
	testlog.Start(t)
	b := newRxBuffer(4)
	done := make(chan bool, 1)
	go func() {
		done <- b.push([]byte{1, 2, 3, 4, 5, 6})
	}()

	waitAvailable(t, &Loopback{in: b}, 4)
	select {
	case <-done:
		t.Fatalf("push returned before room was made")
	case <-time.After(20 * time.Millisecond):
	}
	buf := make([]byte, 4)
	if n, _ := b.read(buf); n != 4 {
		t.Fatalf("read got=%d", n)
	}
	if ok := <-done; !ok {
		t.Fatalf("push failed")
	}
	if b.available() != 2 {
		t.Fatalf("available got=%d want=2", b.available())
	}
}

func TestBufferFailReleasesWaitingPush(t *testing.T) {
	testlog.Start(t)
	b := newRxBuffer(1)
	done := make(chan bool, 1)
	go func() {
		done <- b.push([]byte{1, 2})
	}()
	time.Sleep(10 * time.Millisecond)
	b.fail(ErrClosed)
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("push succeeded on failed buffer")
		}
	case <-time.After(time.Second):
		t.Fatalf("push still blocked after fail")
	}
}

func TestTCPRoundTrip(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	accepted := make(chan *Conn, 1)
	go func() {
		c, err := AcceptTCP(ctx, ln, DefaultConfig())
		if err != nil {
			t.Errorf("accept: %v", err)
		}
		accepted <- c
	}()

	client, err := DialTCP(ctx, ln.Addr().String(), DefaultConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	server := <-accepted
	if server == nil {
		t.FailNow()
	}

	if n, err := client.Write([]byte{0, 15, 1, 2}); err != nil || n != 4 {
		t.Fatalf("write got=%d err=%v", n, err)
	}
	if got := readExactly(t, server, 4); !bytes.Equal(got, []byte{0, 15, 1, 2}) {
		t.Fatalf("server read got=%v", got)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for client.Err() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("client did not latch peer close")
		}
		time.Sleep(time.Millisecond)
	}
	if client.Available() != 0 {
		t.Fatalf("available after latch got=%d", client.Available())
	}
}

func TestAcceptTCPHonoursCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AcceptTCP(ctx, ln, DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Fatalf("accept err got=%v want=%v", err, context.Canceled)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	testlog.Start(t)
	l, err := ListenWebSocket("127.0.0.1:0", "", DefaultConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := DialWebSocket(ctx, "ws://"+l.Addr().String()+DefaultWebSocketPath, DefaultConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	server, err := l.Accept(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer server.Close()

	// Two writes, read back as one contiguous stream.
	client.Write([]byte{1, 2, 3})
	client.Write([]byte{4, 5})
	if got := readExactly(t, server, 5); !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("server read got=%v", got)
	}
	server.Write([]byte{9})
	if got := readExactly(t, client, 1); got[0] != 9 {
		t.Fatalf("client read got=%v", got)
	}
}

func TestNewDialerRejectsUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := NewDialer(Endpoint{Kind: "carrier-pigeon"}, DefaultConfig()); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err got=%v want=%v", err, ErrUnknownKind)
	}
	if !KindSerial.Valid() || Kind("nope").Valid() {
		t.Fatalf("kind validation mismatch")
	}
}

func TestNewDialerTCPListen(t *testing.T) {
	testlog.Start(t)
	d, err := NewDialer(Endpoint{Kind: KindTCPListen, Address: "127.0.0.1:0"}, DefaultConfig())
	if err != nil {
		t.Fatalf("new dialer: %v", err)
	}
	defer d.Close()
	addr := d.(*tcpListenDialer).Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := NewDialer(Endpoint{Kind: KindTCP, Address: addr}, DefaultConfig())
	if err != nil {
		t.Fatalf("client dialer: %v", err)
	}
	go func() {
		c, err := client.Dial(ctx)
		if err == nil {
			c.Write([]byte{42})
			<-ctx.Done()
			c.Close()
		}
	}()
	server, err := d.Dial(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer server.Close()
	if got := readExactly(t, server, 1); got[0] != 42 {
		t.Fatalf("read got=%v", got)
	}
}

func TestEnginesSyncOverLoopback(t *testing.T) {
	testlog.Start(t)
	a, b := Pipe(DefaultBufferSize)
	cfg := mux.DefaultConfig()
	ea, eb := mux.New(a, cfg), mux.New(b, cfg)
	for now := uint32(0); now <= 2000; now += 10 {
		ea.Process(now)
		eb.Process(now)
	}
	if !ea.IsSynced() || !eb.IsSynced() {
		t.Fatalf("sync over loopback a=%v b=%v", ea.IsSynced(), eb.IsSynced())
	}

	a.Close()
	for now := uint32(2010); now <= 12000; now += 10 {
		ea.Process(now)
	}
	if ea.IsSynced() {
		t.Fatalf("engine stayed synced on a closed link")
	}
}
