package link

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/testutil/testlog"
	"github.com/danmuck/serialmux/internal/transport"
)

func fastConfig(name string) Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Tick = time.Millisecond
	cfg.Engine.HeartbeatUnsynced = 20 * time.Millisecond
	cfg.Engine.HeartbeatSynced = 100 * time.Millisecond
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1}
	return cfg
}

// queueDialer hands out transports in order, then blocks until ctx ends.
func queueDialer(ts ...Transport) (DialFunc, *atomic.Int32) {
	var calls atomic.Int32
	ch := make(chan Transport, len(ts))
	for _, t := range ts {
		ch <- t
	}
	return func(ctx context.Context) (Transport, error) {
		calls.Add(1)
		select {
		case t := <-ch:
			return t, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, &calls
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func startRunner(t *testing.T, r *Runner) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestRunnersConvergeAndDeliverPublication(t *testing.T) {
	testlog.Start(t)
	endA, endB := transport.Pipe(transport.DefaultBufferSize)

	cfgA := fastConfig("a")
	cfgA.Channels = []ChannelSpec{{Name: "X", DLC: 2}}
	dialA, _ := queueDialer(endA)
	a := NewRunner(cfgA, dialA)

	dialB, _ := queueDialer(endB)
	b := NewRunner(fastConfig("b"), dialB)
	got := make(chan []byte, 4)
	if err := b.Subscribe("X", mux.HandlerFunc(func(p []byte) { got <- p })); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Queued before any link exists; delivered or dropped depending on
	// whether B binds X before A syncs.
	if err := a.Publish("X", []byte{9, 9}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	startRunner(t, a)
	startRunner(t, b)

	waitUntil(t, "subscription bound", func() bool { return len(b.Status().Link.RX) == 1 })
	if err := a.Publish("X", []byte{1, 2}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deadline := time.After(3 * time.Second)
	for delivered := false; !delivered; {
		select {
		case p := <-got:
			delivered = bytes.Equal(p, []byte{1, 2})
		case <-deadline:
			t.Fatalf("publication not delivered; a=%+v b=%+v", a.Status(), b.Status())
		}
	}
	waitUntil(t, "outbox drain", func() bool { return len(a.Status().Outbox) == 0 })
	st := b.Status()
	if !st.Connected || !st.Link.Synced || len(st.Link.RX) != 1 {
		t.Fatalf("b status got=%+v", st)
	}
}

func TestRunnerDoRunsOnEngine(t *testing.T) {
	testlog.Start(t)
	end, _ := transport.Pipe(64)
	cfg := fastConfig("do")
	cfg.Channels = []ChannelSpec{{Name: "A", DLC: 1}, {Name: "B", DLC: 4}}
	dial, _ := queueDialer(end)
	r := NewRunner(cfg, dial)
	startRunner(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var n int
	if err := r.Do(ctx, func(e *mux.Engine) { n = e.NumTxChannels() }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if n != 2 {
		t.Fatalf("tx channels got=%d want=2", n)
	}
}

func TestRunnerReconnectsAfterTransportFailure(t *testing.T) {
	testlog.Start(t)
	first, firstPeer := transport.Pipe(64)
	second, _ := transport.Pipe(64)
	dial, calls := queueDialer(first, second)
	r := NewRunner(fastConfig("re"), dial)
	startRunner(t, r)

	waitUntil(t, "first connect", func() bool { return r.Status().Connected })
	firstPeer.Close()
	waitUntil(t, "reconnect", func() bool { return calls.Load() >= 2 && r.Status().Reconnects == 1 })
	waitUntil(t, "second connect", func() bool { return r.Status().Connected })
}

func TestRunnerGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	cfg := fastConfig("gone")
	cfg.MaxReconnectAttempts = 3
	var calls atomic.Int32
	refused := errors.New("connection refused")
	r := NewRunner(cfg, func(context.Context) (Transport, error) {
		calls.Add(1)
		return nil, refused
	})

	err := r.Run(context.Background())
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("run err got=%v want=%v", err, ErrReconnectExhausted)
	}
	if calls.Load() != 3 {
		t.Fatalf("dial calls got=%d want=3", calls.Load())
	}
	if st := r.Status(); st.Connected || st.LastError != refused.Error() {
		t.Fatalf("status after give-up got=%+v", st)
	}
}

func TestRunnerPublishValidation(t *testing.T) {
	testlog.Start(t)
	cfg := fastConfig("v")
	cfg.Channels = []ChannelSpec{{Name: "MOT", DLC: 4}}
	r := NewRunner(cfg, nil)

	if err := r.Publish("NOPE", []byte{1}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("unknown channel err got=%v", err)
	}
	if err := r.Publish("MOT", []byte{1, 2}); !errors.Is(err, ErrPayloadLength) {
		t.Fatalf("length err got=%v", err)
	}
	if err := r.Publish("MOT", []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("valid publish: %v", err)
	}
	if got := r.Status().Name; got != "v" {
		t.Fatalf("status name got=%q", got)
	}
}

func TestRunnerSubscribeValidation(t *testing.T) {
	testlog.Start(t)
	end, _ := transport.Pipe(64)
	dial, _ := queueDialer(end)
	r := NewRunner(fastConfig("s"), dial)
	h := mux.HandlerFunc(func([]byte) {})

	if err := r.Subscribe("", h); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("empty name err got=%v", err)
	}
	if err := r.Subscribe("WAY_TOO_LONG", h); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("long name err got=%v", err)
	}
	if err := r.Subscribe("OK", nil); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("nil handler err got=%v", err)
	}

	startRunner(t, r)
	waitUntil(t, "running", func() bool { return r.running.Load() })
	if err := r.Subscribe("LATE", h); !errors.Is(err, ErrRunning) {
		t.Fatalf("subscribe while running err got=%v", err)
	}
	if err := r.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Fatalf("second run err got=%v", err)
	}
}
