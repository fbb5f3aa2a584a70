package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Config selects the log level and sinks.
type Config struct {
	Level   string
	Dir     string // session log file directory, empty to skip the file
	Name    string // binary name used in the log file name
	Console io.Writer

	GraylogEnabled bool
	GraylogAddress string
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// ParseLevel converts a config level to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Manager owns the log sinks for one session.
type Manager struct {
	logger  zerolog.Logger
	closers []io.Closer
	path    string
}

// Setup builds a logger writing to the console, the session log file and,
// when enabled, Graylog over GELF. A Graylog that cannot be reached is logged
// and skipped.
func Setup(cfg Config, sessionStart time.Time) (*Manager, error) {
	m := &Manager{}
	var writers []io.Writer

	if cfg.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: cfg.Console, TimeFormat: time.RFC3339})
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs dir: %w", err)
		}
		m.path = LogFilePath(cfg.Dir, cfg.Name, sessionStart)
		f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		m.closers = append(m.closers, f)
		writers = append(writers, f)
	}

	var gelfErr error
	if cfg.GraylogEnabled {
		gw, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			gelfErr = err
		} else {
			m.closers = append(m.closers, gw)
			writers = append(writers, gw)
		}
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	m.logger = zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Str("app", cfg.Name).Logger()

	if gelfErr != nil {
		m.logger.Warn().Err(gelfErr).Str("address", cfg.GraylogAddress).Msg("Graylog unavailable, continuing without it")
	}
	m.logger.Info().Str("level", ParseLevel(cfg.Level).String()).Str("file", m.path).Msg("Logging initialized")
	return m, nil
}

// Logger returns the configured logger.
func (m *Manager) Logger() zerolog.Logger {
	return m.logger
}

// FilePath returns the session log file, empty when file logging is off.
func (m *Manager) FilePath() string {
	return m.path
}

// Close flushes and closes every sink.
func (m *Manager) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}
