package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type peerConfig struct {
	ProfilePath     string
	Tick            time.Duration
	StatusAddr      string
	PublishInterval time.Duration
	PublishChannel  string
}

func defaultPeerConfig() peerConfig {
	return peerConfig{
		ProfilePath:     "cmd/muxpeer/profile.toml",
		Tick:            time.Millisecond,
		PublishInterval: 100 * time.Millisecond,
	}
}

type fileConfig struct {
	Profile         string `toml:"profile"`
	Tick            string `toml:"tick"`
	TickMS          int64  `toml:"tick_ms"`
	StatusAddr      string `toml:"status_addr"`
	PublishInterval string `toml:"publish_interval"`
	PublishChannel  string `toml:"publish_channel"`
}

func loadPeerConfig(path string) (peerConfig, error) {
	cfg := defaultPeerConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return peerConfig{}, fmt.Errorf("load muxpeer config: %w", err)
	}

	if meta.IsDefined("profile") {
		if p := strings.TrimSpace(raw.Profile); p != "" {
			cfg.ProfilePath = p
		}
	}
	if meta.IsDefined("tick") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Tick))
		if err != nil {
			return peerConfig{}, fmt.Errorf("parse tick: %w", err)
		}
		cfg.Tick = d
	}
	if meta.IsDefined("tick_ms") {
		cfg.Tick = time.Duration(raw.TickMS) * time.Millisecond
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("publish_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PublishInterval))
		if err != nil {
			return peerConfig{}, fmt.Errorf("parse publish_interval: %w", err)
		}
		cfg.PublishInterval = d
	}
	if meta.IsDefined("publish_channel") {
		cfg.PublishChannel = strings.TrimSpace(raw.PublishChannel)
	}

	if cfg.Tick <= 0 {
		return peerConfig{}, fmt.Errorf("tick must be positive, got %s", cfg.Tick)
	}
	return cfg, nil
}
