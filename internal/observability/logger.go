package observability

import (
	"github.com/danmuck/serialmux/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime logging profile and tags every line with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	log.Logger = log.Logger.With().Str("app", app).Logger()
	return log.Logger
}
