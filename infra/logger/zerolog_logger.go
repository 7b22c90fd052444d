package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// Output selects where and how loggers created by New write.
type Output struct {
	// Level is a zerolog level name, LOG_LEVEL when empty.
	Level string
	// Format is "json" or "console". APP_ENV=dev selects console when empty.
	Format string
	// File switches from stdout to a rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	outMu      sync.RWMutex
	configured bool
	out        io.Writer
	level      zerolog.Level
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Configure applies o to every logger created afterwards. The returned
// closer releases the log file, if any.
func Configure(o Output) io.Closer {
	var w io.Writer = os.Stdout
	var c io.Closer = nopCloser{}
	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		w, c = lj, lj
	}
	format := strings.ToLower(o.Format)
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: o.File != ""}
	}
	lvl := levelFromEnv()
	if l, err := zerolog.ParseLevel(strings.ToLower(o.Level)); err == nil && l != zerolog.NoLevel {
		lvl = l
	}

	outMu.Lock()
	defer outMu.Unlock()
	configured, out, level = true, w, lvl
	return c
}

// NewZerologLogger creates a logger tagged with component on the configured
// output. Before Configure it writes to stdout following APP_ENV and
// LOG_LEVEL.
func NewZerologLogger(component string) Logger {
	outMu.RLock()
	ok, w, lvl := configured, out, level
	outMu.RUnlock()
	if !ok {
		w = os.Stdout
		if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
			w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		lvl = levelFromEnv()
	}
	return newZerolog(w, lvl, component)
}

// NewZerologLoggerTo writes JSON lines to w at the LOG_LEVEL level.
func NewZerologLoggerTo(w io.Writer, component string) Logger {
	return newZerolog(w, levelFromEnv(), component)
}

func newZerolog(w io.Writer, lvl zerolog.Level, component string) Logger {
	z := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
