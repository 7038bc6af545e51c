package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line.
const ServiceName = "food-wallet-service"

// New returns the process logger. Pretty switches to console output for local runs.
func New(level string, pretty bool) zerolog.Logger {
	if pretty {
		return build(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, level).
			With().Caller().Logger()
	}
	return build(os.Stdout, level).With().Caller().Logger()
}

// NewWithWriter writes JSON lines to w without caller info.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(w, level)
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func build(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// Into returns a copy of ctx carrying l.
func Into(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// From returns the request-scoped logger stored by Into, or fallback.
func From(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return fallback
}
