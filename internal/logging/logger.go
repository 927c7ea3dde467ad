package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/askql/askql/internal/config"
)

// Logger provides structured logging backed by zerolog
type Logger struct {
	zl zerolog.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// InitializeLogger initializes the global logger with the given configuration
func InitializeLogger(cfg config.LoggingConfig) error {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(cfg)
	})

	return nil
}

// GetLogger returns the global logger, creating a default one if needed
func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(config.LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		})
	}

	return globalLogger
}

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) *Logger {
	var out io.Writer

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out = os.Stdout
	default:
		out = os.Stderr
	}

	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zl := zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithField returns a logger with an additional field attached to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithError returns a logger with the error attached to every entry
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// NewTestLogger returns a silent logger for use in tests
func NewTestLogger() *Logger {
	return &Logger{zl: zerolog.New(io.Discard)}
}
