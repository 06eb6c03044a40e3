// Package logging wraps zerolog with the sentry's sink configuration:
// optional console output plus an optional rotating file, and a
// `component` field every caller attaches to scope log lines to one part
// of the process (the entrypoint uses `main`; the ingest client, worker
// pool and alert log use `ingest`, `worker` and `alertlog`).
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config drives log sink setup.
type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Console    bool   `yaml:"console"`
}

// Logger wraps a configured zerolog.Logger and owns the rotating file
// handle, if any.
type Logger struct {
	base zerolog.Logger
	file io.WriteCloser
}

var global *Logger

// Initialize builds the process-wide logger from cfg and installs it as
// the global logger returned by Get.
func Initialize(cfg Config) *Logger {
	global = build(cfg)
	return global
}

// Get returns the process-wide logger, defaulting to a console-only
// info-level logger if Initialize was never called.
func Get() *Logger {
	if global == nil {
		global = build(Config{Level: "info", Console: true})
	}
	return global
}

func build(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	l := &Logger{}

	if cfg.Console || cfg.File == "" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSize, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAge, 28),
			Compress:   true,
		}
		l.file = rotator
		writers = append(writers, rotator)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l.base = zerolog.New(out).With().Timestamp().Logger()
	return l
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Close releases the rotating file handle, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// For scopes subsequent log lines to a named pipeline component.
func (l *Logger) For(component string) zerolog.Logger {
	return l.base.With().Str("component", component).Logger()
}
