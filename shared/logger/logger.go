package logger

import (
	"io"
	"os"
	"time"

	"meetroom/config"
	"meetroom/shared/constant"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const defaultLevel = zerolog.InfoLevel

// InitLogger replaces the global logger. Development gets a console writer, every other
// environment gets one JSON object per line tagged with the service name.
func InitLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var out io.Writer = os.Stdout
	if cfg.Server.Env == constant.ServerEnvDevelopment {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Str("service", cfg.App.Name).Logger()

	SetLogLevel(cfg)
}

// SetLogLevel applies LOG_LEVEL, falling back to info when it is unset or unknown.
func SetLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = defaultLevel
	}

	zerolog.SetGlobalLevel(level)
	log.Debug().Str("level", level.String()).Msg("Log level set")
}

func ErrorWithStack(err error) {
	log.Error().Stack().Err(errors.WithStack(err)).Msg("unexpected error")
}
