package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"meetroom/config"
	"meetroom/shared/logger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	t.Helper()

	original := log.Logger
	level := zerolog.GlobalLevel()
	marshaler := zerolog.ErrorStackMarshaler

	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(level)
		zerolog.ErrorStackMarshaler = marshaler
	})
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		logLevel string
		want     zerolog.Level
	}{
		{logLevel: "trace", want: zerolog.TraceLevel},
		{logLevel: "debug", want: zerolog.DebugLevel},
		{logLevel: "warn", want: zerolog.WarnLevel},
		{logLevel: "error", want: zerolog.ErrorLevel},
		{logLevel: "disabled", want: zerolog.Disabled},
		{logLevel: "verbose", want: zerolog.InfoLevel},
		{logLevel: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("level "+tt.logLevel, func(t *testing.T) {
			restoreGlobals(t)

			cfg := &config.Config{}
			cfg.Server.LogLevel = tt.logLevel

			logger.SetLogLevel(cfg)

			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestInitLogger(t *testing.T) {
	restoreGlobals(t)

	cfg := &config.Config{}
	cfg.App.Name = "meetroom"
	cfg.Server.Env = "production"
	cfg.Server.LogLevel = "warn"

	logger.InitLogger(cfg)

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.NotNil(t, zerolog.ErrorStackMarshaler)
}

func TestErrorWithStack(t *testing.T) {
	restoreGlobals(t)

	cfg := &config.Config{}
	cfg.App.Name = "meetroom"
	logger.InitLogger(cfg)

	var buf bytes.Buffer
	log.Logger = log.Output(&buf)

	logger.ErrorWithStack(errors.New("room_bookings: connection reset"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "room_bookings: connection reset", entry["error"])
	assert.Contains(t, entry, "stack")
}
