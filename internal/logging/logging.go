// Package logging wraps logrus with the component-scoped helpers the rest of
// tradedeck uses. The TUI owns the terminal, so output normally goes to a
// rotating file rather than stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias-compatible field map.
type Fields map[string]interface{}

// Log wraps logrus.Logger.
type Log struct {
	*logrus.Logger
	closer io.Closer
}

// Entry wraps logrus.Entry.
type Entry struct {
	*logrus.Entry
}

// Options configure a Log.
type Options struct {
	Level  string // trace, debug, info, warn, error; LOG_LEVEL overrides
	Format string // text or json
	Output string // stdout, stderr, or a file path
	MaxAge int    // days to keep rotated files; zero keeps them forever
}

// New builds a logger from opts.
func New(opts Options) (*Log, error) {
	l := &Log{Logger: logrus.New()}
	if err := l.Configure(opts); err != nil {
		return nil, err
	}
	return l, nil
}

// Discard returns a logger that writes nowhere. Used by tests and as the
// default when a component is built without one.
func Discard() *Log {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return &Log{Logger: l}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *Log) *Log {
	if l == nil {
		return Discard()
	}
	return l
}

// Configure applies level, format, and output.
func (l *Log) Configure(opts Options) error {
	level := opts.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	l.SetLevel(lvl)
	l.SetReportCaller(true)

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			DisableColors:    true,
			CallerPrettyfier: callerPrettyfier,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	var out io.Writer
	var closer io.Closer
	switch opts.Output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case "":
		out = io.Discard
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename: opts.Output,
			MaxAge:   opts.MaxAge,
			MaxSize:  20,
			Compress: true,
		}
		out, closer = rotator, rotator
	}
	l.SetOutput(out)
	if l.closer != nil {
		_ = l.closer.Close()
	}
	l.closer = closer
	return nil
}

// Close closes the rotating log file, if any. Later entries are discarded.
func (l *Log) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.SetOutput(io.Discard)
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.Logger.WithFields(logrus.Fields(fields))}
}

func (l *Log) WithError(err error) *Entry {
	return &Entry{Entry: l.Logger.WithError(err)}
}

func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField("component", component)}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{Entry: e.Entry.WithField(key, value)}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}
