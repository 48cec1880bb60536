package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type runtimeConfig struct {
	ProfilePath          string
	Tick                 time.Duration
	StatusAddr           string
	CorsOrigins          []string
	ReconnectMaxAttempts int
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		ProfilePath: "cmd/muxctl/profile.toml",
		Tick:        5 * time.Millisecond,
		StatusAddr:  "127.0.0.1:7020",
	}
}

type fileConfig struct {
	Profile              string   `toml:"profile"`
	Tick                 string   `toml:"tick"`
	TickMS               int64    `toml:"tick_ms"`
	StatusAddr           string   `toml:"status_addr"`
	CorsOrigins          []string `toml:"cors_origins"`
	ReconnectMaxAttempts int      `toml:"reconnect_max_attempts"`
}

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load muxctl config: %w", err)
	}

	if meta.IsDefined("profile") {
		if p := strings.TrimSpace(raw.Profile); p != "" {
			cfg.ProfilePath = p
		}
	}

	if meta.IsDefined("tick") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Tick))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse tick: %w", err)
		}
		cfg.Tick = d
	}

	if meta.IsDefined("tick_ms") {
		cfg.Tick = time.Duration(raw.TickMS) * time.Millisecond
	}

	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("reconnect_max_attempts") {
		cfg.ReconnectMaxAttempts = raw.ReconnectMaxAttempts
	}

	if cfg.Tick <= 0 {
		return runtimeConfig{}, fmt.Errorf("tick must be positive, got %s", cfg.Tick)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
