// Package logging собирает zerolog-логгер по формату и уровню из конфигурации.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogFormatPlain = "plain"
	LogFormatJSON  = "json"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// New возвращает логгер, пишущий в w. plain печатает человекочитаемые строки,
// json пишет по объекту на строку.
func New(format, level string, w io.Writer) (zerolog.Logger, error) {
	var out io.Writer
	switch format {
	case LogFormatJSON:
		out = w
	case LogFormatPlain:
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format: %s", format)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level (%s): %w", level, err)
	}
	if level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
