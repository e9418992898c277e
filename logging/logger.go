// Package logging defines the leveled logger used across the application and
// an hclog-backed implementation.
package logging

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Logger accepts leveled messages with key/value pairs.
type Logger interface {
	Error(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Verbose(msg string, args ...interface{})
	// Named returns a logger for a sub-component.
	Named(name string) Logger
	// Flush writes any buffered output.
	Flush() error
}

// Options configures New.
type Options struct {
	Name   string
	Level  string // error, warning, info or verbose
	Output io.Writer
	JSON   bool
}

// ParseLevel maps a level name to an hclog level. Unknown names map to info.
func ParseLevel(level string) hclog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return hclog.Error
	case "warning", "warn":
		return hclog.Warn
	case "verbose", "debug":
		return hclog.Debug
	case "trace":
		return hclog.Trace
	default:
		return hclog.Info
	}
}

// ValidLevel reports whether level is one of the documented names.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "error", "warning", "info", "verbose":
		return true
	}
	return false
}

// New creates a buffered hclog logger.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	w := &flushWriter{buf: bufio.NewWriter(out)}

	return &hclogLogger{
		log: hclog.New(&hclog.LoggerOptions{
			Name:       opts.Name,
			Level:      ParseLevel(opts.Level),
			Output:     w,
			JSONFormat: opts.JSON,
		}),
		out: w,
	}
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return &hclogLogger{log: hclog.NewNullLogger()}
}

type hclogLogger struct {
	log hclog.Logger
	out *flushWriter
}

func (l *hclogLogger) Error(msg string, args ...interface{})   { l.log.Error(msg, args...) }
func (l *hclogLogger) Warning(msg string, args ...interface{}) { l.log.Warn(msg, args...) }
func (l *hclogLogger) Info(msg string, args ...interface{})    { l.log.Info(msg, args...) }
func (l *hclogLogger) Verbose(msg string, args ...interface{}) { l.log.Debug(msg, args...) }

func (l *hclogLogger) Named(name string) Logger {
	return &hclogLogger{log: l.log.Named(name), out: l.out}
}

func (l *hclogLogger) Flush() error {
	if l.out == nil {
		return nil
	}
	return l.out.Flush()
}

// flushWriter serializes writes and flushes to the buffered writer.
type flushWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
}

func (w *flushWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *flushWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}
