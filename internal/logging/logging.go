// Copyright © 2025 Michael Shields
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides configurable logging for hedwig-go processes.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hedwig-pubsub/hedwig-go/internal/config"
)

// LogFileName is the file created under Config.Directory.
const LogFileName = "hedwig.log"

// ErrUnknownOutput is returned when Output names no known destination.
var ErrUnknownOutput = errors.New("unknown logging output")

// Config represents logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Output specifies where logs should be written:
	// - "none": Disable logging
	// - "stdout": Write to standard output (default)
	// - "stderr": Write to standard error
	// - "directory": Write to hedwig.log in Directory
	// - "buffer": Internal use for testing.
	Output string

	// Directory is the directory for log files (when Output is "directory").
	Directory string

	// Format selects the slog handler, "text" (default) or "json".
	Format string
}

// FromConfig converts the logging section of a configuration file.
func FromConfig(c config.LoggingConfig) Config {
	return Config{
		Level:     c.Level,
		Output:    c.Output,
		Directory: c.Directory,
		Format:    c.Format,
	}
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	// Handler exposes the underlying handler so the logger can back slog's
	// package-level functions.
	Handler() slog.Handler
	Close() error
}

// New creates a new logger based on configuration.
func New(cfg Config) (Logger, error) {
	switch cfg.Output {
	case "none":
		return &nopLogger{}, nil
	case "stdout", "":
		return newStdLogger(os.Stdout, cfg)
	case "stderr":
		return newStdLogger(os.Stderr, cfg)
	case "directory":
		return newDirectoryLogger(cfg)
	case "buffer":
		// For testing.
		return newBufferLogger(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, cfg.Output)
	}
}

// Default returns the built-in logger: info and above, text, to stdout.
func Default() Logger {
	handler := newHandler(os.Stdout, Config{Level: config.DefaultLevel})

	return &standardLogger{
		handler: handler,
		logger:  slog.New(handler),
	}
}

var (
	installMu sync.Mutex
	installed Logger
)

// Install makes l the process-wide logger, including slog's default and the
// standard log package output. The returned function puts back whatever was
// installed before.
func Install(l Logger) (restore func()) {
	installMu.Lock()
	defer installMu.Unlock()

	prevLogger := installed
	prevSlog := slog.Default()
	prevWriter, prevFlags := log.Writer(), log.Flags()

	installed = l
	slog.SetDefault(slog.New(l.Handler()))

	return func() {
		installMu.Lock()
		defer installMu.Unlock()

		installed = prevLogger
		slog.SetDefault(prevSlog)
		log.SetOutput(prevWriter)
		log.SetFlags(prevFlags)
	}
}

// Current returns the installed logger, or nil.
func Current() Logger {
	installMu.Lock()
	defer installMu.Unlock()

	return installed
}

// standardLogger implements Logger using slog.
type standardLogger struct {
	handler slog.Handler
	logger  *slog.Logger
	closer  io.Closer
}

func newStdLogger(w io.Writer, cfg Config) (Logger, error) {
	handler := newHandler(w, cfg)

	return &standardLogger{
		handler: handler,
		logger:  slog.New(handler),
	}, nil
}

// defaultLogDir returns the platform-specific user log location.
func defaultLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "hedwig"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "hedwig", "logs"), nil
		}

		return filepath.Join(home, "AppData", "Local", "hedwig", "logs"), nil
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}

		return filepath.Join(dataHome, "hedwig", "logs"), nil
	}
}

func newDirectoryLogger(cfg Config) (Logger, error) {
	logDir := cfg.Directory
	if logDir == "" {
		var err error
		if logDir, err = defaultLogDir(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(logDir, LogFileName)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // Safe path construction
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := newHandler(file, cfg)

	return &standardLogger{
		handler: handler,
		logger:  slog.New(handler),
		closer:  file,
	}, nil
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to a slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *standardLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *standardLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *standardLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *standardLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *standardLogger) With(args ...any) Logger {
	// Only the original logger owns the closer.
	return &standardLogger{
		handler: l.handler,
		logger:  l.logger.With(args...),
	}
}

func (l *standardLogger) Handler() slog.Handler {
	return l.logger.Handler()
}

func (l *standardLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}

	return nil
}

// nopLogger is a no-op logger for when logging is disabled.
type nopLogger struct{}

func (*nopLogger) Debug(_ string, _ ...any) {}
func (*nopLogger) Info(_ string, _ ...any)  {}
func (*nopLogger) Warn(_ string, _ ...any)  {}
func (*nopLogger) Error(_ string, _ ...any) {}
func (n *nopLogger) With(_ ...any) Logger {
	return n
}

func (*nopLogger) Handler() slog.Handler {
	return slog.DiscardHandler
}

func (*nopLogger) Close() error {
	return nil
}

// bufferLogger for testing purposes.
type bufferLogger struct {
	*standardLogger

	mu     *sync.Mutex
	buffer *strings.Builder
}

// lockedWriter serializes writes into the shared builder.
type lockedWriter struct {
	mu *sync.Mutex
	b  *strings.Builder
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.b.Write(p)
}

func (b *bufferLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buffer.String()
}

func newBufferLogger(cfg Config) (Logger, error) {
	buf := &strings.Builder{}
	mu := &sync.Mutex{}
	handler := newHandler(lockedWriter{mu: mu, b: buf}, cfg)

	return &bufferLogger{
		standardLogger: &standardLogger{
			handler: handler,
			logger:  slog.New(handler),
		},
		mu:     mu,
		buffer: buf,
	}, nil
}
