package cmd

import (
	"os"

	"github.com/rs/zerolog"
)

// zlogAdapter bridges the localizers' logging interface onto zerolog.
// Success has no zerolog level of its own, so it logs at info with a
// status field the console writer renders inline.
type zlogAdapter struct {
	log zerolog.Logger
}

func newLogger(verbose bool) *zlogAdapter {
	level := zerolog.InfoLevel
	if !verbose {
		level = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return &zlogAdapter{
		log: zerolog.New(out).Level(level).With().Timestamp().Logger(),
	}
}

func (z *zlogAdapter) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *zlogAdapter) Warning(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *zlogAdapter) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}

func (z *zlogAdapter) Success(format string, args ...any) {
	// Always visible, even without --verbose.
	z.log.Log().Str("status", "ok").Msgf(format, args...)
}
