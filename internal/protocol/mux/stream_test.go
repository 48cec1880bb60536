package mux

import (
	"bytes"
	"testing"

	"github.com/danmuck/serialmux/internal/protocol/control"
	"github.com/danmuck/serialmux/internal/protocol/frame"
)

// testStream feeds queued bytes to the engine and captures every write.
type testStream struct {
	in         bytes.Buffer
	writes     [][]byte
	writeLimit int
	writeErr   error
}

func newTestStream() *testStream {
	return &testStream{writeLimit: -1}
}

func (s *testStream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if s.writeLimit >= 0 && n > s.writeLimit {
		n = s.writeLimit
	}
	s.writes = append(s.writes, append([]byte(nil), p[:n]...))
	return n, nil
}

func (s *testStream) Available() int {
	return s.in.Len()
}

func (s *testStream) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *testStream) feed(raw []byte) {
	s.in.Write(raw)
}

func (s *testStream) feedControl(payload []byte) {
	s.feed(frame.Encode(ControlChannel, control.PayloadLen, payload))
}

// controlWrites decodes every control frame written so far.
func (s *testStream) controlWrites(t *testing.T) []control.Message {
	t.Helper()
	out := make([]control.Message, 0, len(s.writes))
	for _, raw := range s.writes {
		if raw[frame.ChannelIndex] != ControlChannel {
			continue
		}
		if !frame.Valid(raw) {
			t.Fatalf("engine wrote invalid frame: %v", raw)
		}
		msg, err := control.Decode(frame.UnpackPayload(raw))
		if err != nil {
			t.Fatalf("decode written control frame: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func (s *testStream) reset() {
	s.writes = nil
}

// pipeEnd connects two engines: writes on one end become readable on the other.
type pipeEnd struct {
	in   *bytes.Buffer
	peer *bytes.Buffer
}

func newPipe() (*pipeEnd, *pipeEnd) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	return &pipeEnd{in: a, peer: b}, &pipeEnd{in: b, peer: a}
}

func (p *pipeEnd) Write(b []byte) (int, error) {
	return p.peer.Write(b)
}

func (p *pipeEnd) Available() int {
	return p.in.Len()
}

func (p *pipeEnd) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

// recorder collects handler payloads.
type recorder struct {
	payloads [][]byte
}

func (r *recorder) Handle(payload []byte) {
	r.payloads = append(r.payloads, payload)
}

type countingObserver struct {
	sent, received, failed int
	dropped                map[DropReason]int
	syncChanges            []bool
}

func newCountingObserver() *countingObserver {
	return &countingObserver{dropped: make(map[DropReason]int)}
}

func (o *countingObserver) FrameSent(uint8) { o.sent++ }
func (o *countingObserver) FrameReceived(uint8) { o.received++ }
func (o *countingObserver) SendFailed(uint8) { o.failed++ }
func (o *countingObserver) FrameDropped(r DropReason) {
	o.dropped[r]++
}
func (o *countingObserver) SyncChanged(synced bool) {
	o.syncChanges = append(o.syncChanges, synced)
}

func newTestEngine(t *testing.T, maxChannels int, opts ...Option) (*Engine, *testStream) {
	t.Helper()
	s := newTestStream()
	cfg := DefaultConfig()
	cfg.MaxChannels = maxChannels
	return New(s, cfg, opts...), s
}

// syncAt drives the engine through one SYNC round trip at now.
func syncAt(t *testing.T, e *Engine, s *testStream, now uint32) {
	t.Helper()
	e.Process(now)
	msgs := s.controlWrites(t)
	if len(msgs) == 0 || msgs[len(msgs)-1].Command != control.CmdSync || msgs[len(msgs)-1].Timestamp != now {
		t.Fatalf("expected SYNC at %d, got %+v", now, msgs)
	}
	s.feedControl(control.EncodeSync(control.CmdSyncRsp, now))
	e.Process(now + 1)
	if !e.IsSynced() {
		t.Fatalf("engine not synced after matching SYNC_RSP at %d", now)
	}
}
