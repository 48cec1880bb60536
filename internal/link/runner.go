package link

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrRunning             = errors.New("link: runner already running")
	ErrReconnectExhausted  = errors.New("link: reconnect attempts exhausted")
	ErrUnknownChannel      = errors.New("link: unknown tx channel")
	ErrPayloadLength       = errors.New("link: payload length does not match channel dlc")
	ErrInvalidSubscription = errors.New("link: invalid subscription")
)

// Transport is a stream the runner can watch for failure and close.
type Transport interface {
	mux.Stream
	Err() error
	Close() error
}

// DialFunc opens a fresh transport for each connect attempt.
type DialFunc func(ctx context.Context) (Transport, error)

// FromDialer adapts a transport.Dialer.
func FromDialer(d transport.Dialer) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Status is the last state published by the runner goroutine.
type Status struct {
	Name       string        `json:"name"`
	Connected  bool          `json:"connected"`
	Reconnects int           `json:"reconnects"`
	LastError  string        `json:"last_error,omitempty"`
	Link       mux.Snapshot  `json:"link"`
	Outbox     []Publication `json:"outbox"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type subscription struct {
	name    string
	handler mux.Handler
}

type op struct {
	fn   func(*mux.Engine)
	done chan struct{}
}

type Option func(*Runner)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = logger
	}
}

func WithObserver(observer mux.Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// Runner drives one engine per connection and reconnects with backoff.
type Runner struct {
	cfg      Config
	dial     DialFunc
	log      zerolog.Logger
	observer mux.Observer
	rng      *rand.Rand
	start    time.Time

	outbox  *Outbox
	ops     chan op
	status  atomic.Pointer[Status]
	running atomic.Bool

	mu   sync.Mutex
	subs []subscription

	reconnects int
}

func NewRunner(cfg Config, dial DialFunc, opts ...Option) *Runner {
	cfg = cfg.WithDefaults()
	r := &Runner{
		cfg:    cfg,
		dial:   dial,
		log:    log.Logger.With().Str("component", "link").Str("link", cfg.Name).Logger(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		start:  time.Now(),
		outbox: NewOutbox(),
		ops:    make(chan op),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status.Store(&Status{Name: cfg.Name, Outbox: []Publication{}})
	return r
}

func (r *Runner) Name() string {
	return r.cfg.Name
}

// Subscribe registers a handler for a remote channel. It must be called
// before Run; the subscription is replayed on every reconnect.
func (r *Runner) Subscribe(name string, handler mux.Handler) error {
	if name == "" || len(name) > mux.ChannelNameMaxLen || handler == nil {
		return fmt.Errorf("%w: %q", ErrInvalidSubscription, name)
	}
	if r.running.Load() {
		return ErrRunning
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subscription{name: name, handler: handler})
	return nil
}

// Publish queues payload for a configured TX channel. Only the newest
// payload per channel is kept; it is sent once the link is synced.
func (r *Runner) Publish(channel string, payload []byte) error {
	ch, ok := r.channel(channel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if len(payload) != int(ch.DLC) {
		return fmt.Errorf("%w: %q got=%d want=%d", ErrPayloadLength, channel, len(payload), ch.DLC)
	}
	r.outbox.Put(channel, payload, time.Now())
	return nil
}

func (r *Runner) channel(name string) (ChannelSpec, bool) {
	for _, ch := range r.cfg.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelSpec{}, false
}

// Do runs fn on the runner goroutine against the live engine. It waits
// until a connection exists or ctx ends.
func (r *Runner) Do(ctx context.Context, fn func(*mux.Engine)) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.ops <- o:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return nil
	}
}

// Status returns the most recent published state.
func (r *Runner) Status() Status {
	return *r.status.Load()
}

// Run connects, serves and reconnects until ctx ends or the reconnect
// budget runs out.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer r.running.Store(false)

	failures := 0
	for {
		t, err := r.dial(ctx)
		if err == nil {
			failures = 0
			r.log.Info().Msg("link connected")
			err = r.serve(ctx, t)
			_ = t.Close()
		}
		if ctx.Err() != nil {
			r.publishIdle(nil)
			r.log.Info().Msg("link stopped")
			return nil
		}

		failures++
		r.reconnects++
		r.publishIdle(err)
		if r.cfg.MaxReconnectAttempts > 0 && failures >= r.cfg.MaxReconnectAttempts {
			return fmt.Errorf("%w: %d attempts: %v", ErrReconnectExhausted, failures, err)
		}
		delay := r.cfg.Backoff.Delay(failures, r.rng)
		r.log.Warn().Err(err).Int("attempt", failures).Dur("retry_in", delay).Msg("link down")
		if sleepCtx(ctx, delay) != nil {
			r.publishIdle(nil)
			return nil
		}
	}
}

func (r *Runner) serve(ctx context.Context, t Transport) error {
	e := r.newEngine(t)
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()
	r.publish(e)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o := <-r.ops:
			o.fn(e)
			close(o.done)
		case <-ticker.C:
			e.Process(r.now())
			r.flushOutbox(e)
			r.publish(e)
			if err := t.Err(); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) newEngine(t Transport) *mux.Engine {
	opts := []mux.Option{mux.WithLogger(r.log)}
	if r.observer != nil {
		opts = append(opts, mux.WithObserver(r.observer))
	}
	e := mux.New(t, r.cfg.Engine, opts...)
	for _, ch := range r.cfg.Channels {
		if e.CreateChannel(ch.Name, ch.DLC) == 0 {
			r.log.Warn().Str("name", ch.Name).Uint8("dlc", ch.DLC).Msg("tx channel rejected")
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if !e.SubscribeToChannel(sub.name, sub.handler) {
			r.log.Warn().Str("name", sub.name).Msg("subscription rejected")
		}
	}
	return e
}

// now is the engine clock: milliseconds since the runner was built,
// wrapping at 2^32.
func (r *Runner) now() uint32 {
	return uint32(time.Since(r.start) / time.Millisecond)
}

func (r *Runner) flushOutbox(e *mux.Engine) {
	if !e.IsSynced() || r.outbox.Len() == 0 {
		return
	}
	at := time.Now()
	for _, p := range r.outbox.List() {
		if e.SendData(p.Channel, p.Payload) {
			r.outbox.Ack(p)
			continue
		}
		r.outbox.MarkAttempt(p.Channel, at)
	}
}

func (r *Runner) publish(e *mux.Engine) {
	r.status.Store(&Status{
		Name:       r.cfg.Name,
		Connected:  true,
		Reconnects: r.reconnects,
		Link:       e.Snapshot(),
		Outbox:     r.outbox.List(),
		UpdatedAt:  time.Now(),
	})
}

func (r *Runner) publishIdle(err error) {
	prev := r.status.Load()
	next := Status{
		Name:       r.cfg.Name,
		Reconnects: r.reconnects,
		Link:       prev.Link,
		Outbox:     r.outbox.List(),
		UpdatedAt:  time.Now(),
	}
	next.Link.Synced = false
	if err != nil {
		next.LastError = err.Error()
	}
	r.status.Store(&next)
}
