package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/serialmux/internal/config"
	"github.com/danmuck/serialmux/internal/link"
	"github.com/danmuck/serialmux/internal/observability"
	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/server"
	"github.com/danmuck/serialmux/internal/transport"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "cmd/muxctl/config.toml", "runtime config path")
	flag.Parse()

	logger := observability.InitLogger("muxctl")
	cfg, err := loadRuntimeConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("muxctl config")
	}
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("muxctl profile")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, profile, logger); err != nil {
		logger.Error().Err(err).Msg("muxctl stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg runtimeConfig, profile config.Profile, logger zerolog.Logger) error {
	dialer, err := transport.NewDialer(profile.Endpoint(), profile.TransportConfig())
	if err != nil {
		return err
	}
	defer dialer.Close()

	lc := profile.LinkConfig()
	lc.Tick = cfg.Tick
	lc.MaxReconnectAttempts = cfg.ReconnectMaxAttempts
	runner := link.NewRunner(lc, link.FromDialer(dialer), link.WithObserver(observability.NewLinkObserver(lc.Name)))
	for _, name := range profile.SubscriptionNames() {
		if err := runner.Subscribe(name, payloadLogger(logger, name)); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)
	go func() {
		errCh <- runner.Run(ctx)
	}()
	if cfg.StatusAddr != "" {
		srv := server.New("muxctl", cfg.StatusAddr, cfg.CorsOrigins, runner)
		go func() {
			errCh <- srv.Serve(ctx)
		}()
	} else {
		errCh <- nil
	}

	logger.Info().
		Str("link", lc.Name).
		Str("transport", string(profile.Endpoint().Kind)).
		Str("status_addr", cfg.StatusAddr).
		Msg("muxctl running")

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
		cancel()
	}
	return first
}

// payloadLogger prints every payload received on a subscribed channel.
func payloadLogger(logger zerolog.Logger, name string) mux.Handler {
	return mux.HandlerFunc(func(payload []byte) {
		logger.Info().
			Str("channel", name).
			Str("hex", hex.EncodeToString(payload)).
			Str("words", formatWords(payload)).
			Msg("payload")
	})
}

// formatWords renders an even-length payload as big-endian uint16 words,
// the layout sensor channels use.
func formatWords(payload []byte) string {
	if len(payload) == 0 || len(payload)%2 != 0 {
		return ""
	}
	words := make([]uint16, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		words = append(words, binary.BigEndian.Uint16(payload[i:]))
	}
	return fmt.Sprint(words)
}
