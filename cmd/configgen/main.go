package main

import (
	"flag"

	"github.com/danmuck/serialmux/internal/config"
	"github.com/danmuck/serialmux/internal/observability"
	"github.com/rs/zerolog/log"
)

func defaultPath(kind string) string {
	switch kind {
	case "host":
		return "cmd/muxctl/profile.toml"
	case "peer":
		return "cmd/muxpeer/profile.toml"
	default:
		log.Fatal().Str("kind", kind).Msg("unknown profile kind")
		return ""
	}
}

func main() {
	kind := flag.String("kind", "host", "profile kind: host|peer")
	output := flag.String("output", "", "output path for the profile template")
	validate := flag.Bool("validate", false, "validate an existing profile")
	input := flag.String("input", "", "profile path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite an existing profile")
	flag.Parse()

	observability.InitLogger("configgen")

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		p, err := config.LoadProfile(path)
		if err != nil {
			log.Fatal().Err(err).Msg("profile invalid")
		}
		log.Info().
			Str("path", path).
			Str("name", p.Name).
			Str("transport", p.Transport.Kind).
			Int("channels", len(p.Channels)).
			Int("subscriptions", len(p.Subscriptions)).
			Msg("profile valid")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote profile template")
}
