package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var levelVar = new(slog.LevelVar)

// L is the process-wide logger. Configure may replace it at startup.
var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// Options controls where log lines go.
type Options struct {
	Level      string
	File       string // empty means stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// Configure applies opts to L and installs it as the slog default.
// The returned closer releases the log file, if any.
func Configure(opts Options) io.Closer {
	SetLevel(opts.Level)

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		out = lj
		closer = lj
	}

	L = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(L)
	return closer
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
