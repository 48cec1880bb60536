package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/serialmux/internal/link"
	"github.com/danmuck/serialmux/internal/protocol/mux"
	"github.com/danmuck/serialmux/internal/transport"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidProfile = errors.New("config: invalid profile")

// Profile describes one end of a mux link.
type Profile struct {
	Name                string               `toml:"name"`
	MaxChannels         int                  `toml:"max_channels"`
	HeartbeatSyncedMS   int                  `toml:"heartbeat_synced_ms"`
	HeartbeatUnsyncedMS int                  `toml:"heartbeat_unsynced_ms"`
	Transport           TransportConfig      `toml:"transport"`
	Channels            []ChannelConfig      `toml:"channels"`
	Subscriptions       []SubscriptionConfig `toml:"subscriptions"`
}

type TransportConfig struct {
	Kind           string `toml:"kind"`
	Address        string `toml:"address"`
	Path           string `toml:"path"`
	Device         string `toml:"device"`
	Baud           int    `toml:"baud"`
	BufferSize     int    `toml:"buffer_size"`
	WriteTimeoutMS int    `toml:"write_timeout_ms"`
}

// ChannelConfig is a TX channel created at startup.
type ChannelConfig struct {
	Name string `toml:"name"`
	DLC  int    `toml:"dlc"`
}

type SubscriptionConfig struct {
	Name string `toml:"name"`
}

func LoadProfile(path string) (Profile, error) {
	var p Profile
	if err := loadToml(path, &p); err != nil {
		return Profile{}, err
	}
	p = p.withDefaults()
	if err := ValidateProfile(p); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes and validates a profile held in memory.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("config parse failed: %w", err)
	}
	p = p.withDefaults()
	if err := ValidateProfile(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func (p Profile) withDefaults() Profile {
	if p.MaxChannels == 0 {
		p.MaxChannels = mux.DefaultMaxChannels
	}
	p.Transport.Kind = strings.ToLower(strings.TrimSpace(p.Transport.Kind))
	if p.Transport.Kind == string(transport.KindSerial) && p.Transport.Baud == 0 {
		p.Transport.Baud = transport.DefaultBaud
	}
	return p
}

func ValidateProfile(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	if p.MaxChannels < 1 || p.MaxChannels > mux.MaxChannels {
		return fmt.Errorf("%w: max_channels %d outside 1..%d", ErrInvalidProfile, p.MaxChannels, mux.MaxChannels)
	}
	if p.HeartbeatSyncedMS < 0 || p.HeartbeatUnsyncedMS < 0 {
		return fmt.Errorf("%w: negative heartbeat period", ErrInvalidProfile)
	}
	if err := validateTransport(p.Transport); err != nil {
		return err
	}
	if len(p.Channels) > p.MaxChannels {
		return fmt.Errorf("%w: %d channels exceed max_channels %d", ErrInvalidProfile, len(p.Channels), p.MaxChannels)
	}
	seen := make(map[string]struct{}, len(p.Channels))
	for i, ch := range p.Channels {
		if !validName(ch.Name) {
			return fmt.Errorf("%w: channel[%d] name %q must be 1..%d bytes", ErrInvalidProfile, i, ch.Name, mux.ChannelNameMaxLen)
		}
		if ch.DLC < 1 || ch.DLC > mux.MaxDataLen {
			return fmt.Errorf("%w: channel[%d] dlc %d outside 1..%d", ErrInvalidProfile, i, ch.DLC, mux.MaxDataLen)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("%w: channel[%d] duplicate name %q", ErrInvalidProfile, i, ch.Name)
		}
		seen[ch.Name] = struct{}{}
	}
	if len(p.Subscriptions) > p.MaxChannels {
		return fmt.Errorf("%w: %d subscriptions exceed max_channels %d", ErrInvalidProfile, len(p.Subscriptions), p.MaxChannels)
	}
	for i, sub := range p.Subscriptions {
		if !validName(sub.Name) {
			return fmt.Errorf("%w: subscription[%d] name %q must be 1..%d bytes", ErrInvalidProfile, i, sub.Name, mux.ChannelNameMaxLen)
		}
	}
	return nil
}

func validateTransport(t TransportConfig) error {
	kind := transport.Kind(t.Kind)
	if !kind.Valid() {
		return fmt.Errorf("%w: transport kind %q (want one of %v)", ErrInvalidProfile, t.Kind, transport.Kinds())
	}
	switch kind {
	case transport.KindSerial:
		if strings.TrimSpace(t.Device) == "" {
			return fmt.Errorf("%w: serial transport missing device", ErrInvalidProfile)
		}
	default:
		if strings.TrimSpace(t.Address) == "" {
			return fmt.Errorf("%w: %s transport missing address", ErrInvalidProfile, kind)
		}
	}
	if t.BufferSize < 0 || t.WriteTimeoutMS < 0 || t.Baud < 0 {
		return fmt.Errorf("%w: negative transport setting", ErrInvalidProfile)
	}
	return nil
}

func validName(name string) bool {
	return name != "" && len(name) <= mux.ChannelNameMaxLen
}

// Endpoint maps the transport table onto a dialable endpoint.
func (p Profile) Endpoint() transport.Endpoint {
	return transport.Endpoint{
		Kind:    transport.Kind(p.Transport.Kind),
		Address: p.Transport.Address,
		Path:    p.Transport.Path,
		Device:  p.Transport.Device,
		Baud:    p.Transport.Baud,
	}
}

func (p Profile) TransportConfig() transport.Config {
	cfg := transport.DefaultConfig()
	if p.Transport.BufferSize > 0 {
		cfg.BufferSize = p.Transport.BufferSize
	}
	if p.Transport.WriteTimeoutMS > 0 {
		cfg.WriteTimeout = time.Duration(p.Transport.WriteTimeoutMS) * time.Millisecond
	}
	return cfg
}

// LinkConfig builds the runner config; tick and backoff keep their defaults.
func (p Profile) LinkConfig() link.Config {
	cfg := link.DefaultConfig()
	cfg.Name = p.Name
	cfg.Engine.MaxChannels = p.MaxChannels
	if p.HeartbeatSyncedMS > 0 {
		cfg.Engine.HeartbeatSynced = time.Duration(p.HeartbeatSyncedMS) * time.Millisecond
	}
	if p.HeartbeatUnsyncedMS > 0 {
		cfg.Engine.HeartbeatUnsynced = time.Duration(p.HeartbeatUnsyncedMS) * time.Millisecond
	}
	cfg.Channels = make([]link.ChannelSpec, 0, len(p.Channels))
	for _, ch := range p.Channels {
		cfg.Channels = append(cfg.Channels, link.ChannelSpec{Name: ch.Name, DLC: uint8(ch.DLC)})
	}
	return cfg
}

// SubscriptionNames lists subscriptions in profile order.
func (p Profile) SubscriptionNames() []string {
	out := make([]string, 0, len(p.Subscriptions))
	for _, sub := range p.Subscriptions {
		out = append(out, sub.Name)
	}
	return out
}
