package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/serialmux/internal/config"
	"github.com/danmuck/serialmux/internal/link"
	"github.com/danmuck/serialmux/internal/observability"
	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/server"
	"github.com/danmuck/serialmux/internal/transport"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/muxpeer/config.toml", "runtime config path")
	flag.Parse()

	observability.InitLogger("muxpeer")
	cfg, err := loadPeerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load muxpeer config")
	}
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load muxpeer profile")
	}
	log.Info().Str("path", cfg.ProfilePath).Str("link", profile.Name).Msg("loaded profile")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, profile); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("muxpeer stopped")
	}
}

func run(ctx context.Context, cfg peerConfig, profile config.Profile) error {
	dialer, err := transport.NewDialer(profile.Endpoint(), profile.TransportConfig())
	if err != nil {
		return err
	}
	defer dialer.Close()

	lc := profile.LinkConfig()
	lc.Tick = cfg.Tick
	runner := link.NewRunner(lc, link.FromDialer(dialer), link.WithObserver(observability.NewLinkObserver(lc.Name)))
	for _, name := range profile.SubscriptionNames() {
		err := runner.Subscribe(name, mux.HandlerFunc(func(payload []byte) {
			log.Info().Str("channel", name).Str("hex", hex.EncodeToString(payload)).Msg("payload")
		}))
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.StatusAddr != "" {
		srv := server.New("muxpeer", cfg.StatusAddr, nil, runner)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error().Err(err).Msg("status api stopped")
				cancel()
			}
		}()
	}
	if ch, ok := publishTarget(cfg, lc); ok && cfg.PublishInterval > 0 {
		go publishLoop(ctx, runner, ch, cfg.PublishInterval)
	}

	log.Info().Str("link", lc.Name).Str("transport", string(profile.Endpoint().Kind)).Msg("muxpeer waiting for host")
	return runner.Run(ctx)
}

// publishTarget picks the configured channel, or the first TX channel.
func publishTarget(cfg peerConfig, lc link.Config) (link.ChannelSpec, bool) {
	for _, ch := range lc.Channels {
		if cfg.PublishChannel == "" || ch.Name == cfg.PublishChannel {
			return ch, true
		}
	}
	return link.ChannelSpec{}, false
}

func publishLoop(ctx context.Context, runner *link.Runner, ch link.ChannelSpec, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	var seq uint16
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			if err := runner.Publish(ch.Name, syntheticPayload(seq, ch.DLC)); err != nil {
				log.Warn().Err(err).Str("channel", ch.Name).Msg("publish failed")
			}
		}
	}
}

// syntheticPayload fills dlc bytes with big-endian words seq, seq+1, ...
// An odd trailing byte carries the low byte of the next word.
func syntheticPayload(seq uint16, dlc uint8) []byte {
	out := make([]byte, dlc)
	word := seq
	for i := 0; i < len(out); i += 2 {
		if i+1 < len(out) {
			binary.BigEndian.PutUint16(out[i:], word)
		} else {
			out[i] = byte(word)
		}
		word++
	}
	return out
}
