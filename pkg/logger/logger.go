package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured wrapper around zerolog.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// NewWriter logs JSON to w at the given level. Used by tests.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop discards everything.
func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) { write(l.zl.Fatal(), msg, fields) }

func write(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.event(event)
	}
	event.Msg(msg)
}

// Field is one structured key/value pair.
type Field struct {
	event   func(*zerolog.Event)
	context func(zerolog.Context) zerolog.Context
}

func String(key, value string) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Str(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Str(key, value) },
	}
}

func Strings(key string, value []string) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Strs(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Strs(key, value) },
	}
}

func Int(key string, value int) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Int(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Int(key, value) },
	}
}

func Int64(key string, value int64) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Int64(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Int64(key, value) },
	}
}

func Float64(key string, value float64) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Float64(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Float64(key, value) },
	}
}

func Bool(key string, value bool) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Bool(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Bool(key, value) },
	}
}

// Duration is written in milliseconds.
func Duration(key string, value time.Duration) Field {
	ms := value.Milliseconds()
	return Int64(key, ms)
}

func Error(err error) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Err(err) },
		context: func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}

func Any(key string, value interface{}) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Interface(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) },
	}
}
