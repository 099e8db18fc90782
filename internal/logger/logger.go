package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
	mu            sync.RWMutex
)

// Init initializes the default logger with a JSON writer on os.Stdout.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		mu.Lock()
		defaultLogger = zerolog.New(os.Stdout).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		mu.Unlock()
		defaultLogger.Debug().Msg("Logger initialized")
	})
}

// Setup replaces the default logger using the configured level and format.
// format is "json" or "console"; unknown levels fall back to info.
func Setup(level, format string) {
	SetOutput(os.Stdout, level, format)
}

// SetOutput is Setup with an explicit writer, used by tests to capture logs.
func SetOutput(w io.Writer, level, format string) {
	Init()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if strings.EqualFold(format, "console") || strings.EqualFold(format, "text") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defaultLogger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() zerolog.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Info logs an informational message with optional key/value pairs.
func Info(msg string, args ...any) {
	l := Get()
	withFields(l.Info(), args).Msg(msg)
}

// Warn logs a warning message with optional key/value pairs.
func Warn(msg string, args ...any) {
	l := Get()
	withFields(l.Warn(), args).Msg(msg)
}

// Error logs an error message with optional key/value pairs.
func Error(msg string, err error, args ...any) {
	l := Get()
	withFields(l.Error().Err(err), args).Msg(msg)
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, args ...any) {
	l := Get()
	withFields(l.Debug(), args).Msg(msg)
}

func withFields(e *zerolog.Event, args []any) *zerolog.Event {
	if len(args) == 0 {
		return e
	}
	return e.Fields(args)
}
