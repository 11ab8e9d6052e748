package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"imgmeta/internal/config"
)

// New builds a zerolog logger writing to w. Format "console" gives
// human-readable output; anything else emits JSON lines.
func New(cfg *config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Init installs the configured logger as the global zerolog logger.
func Init(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = New(cfg, os.Stderr)
}
