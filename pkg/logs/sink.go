package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Kind classifies a log event
type Kind int

const (
	Info Kind = iota
	Success
	Warn
	Error
	Debug
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Debug:
		return "debug"
	default:
		return "info"
	}
}

// ParseKind maps a level name used by plugin scripts to a Kind
func ParseKind(level string) Kind {
	switch strings.ToLower(level) {
	case "success":
		return Success
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	case "debug":
		return Debug
	default:
		return Info
	}
}

// Entry is a single event in the sink
type Entry struct {
	Kind     Kind
	Message  string
	PluginID string // empty for events not tied to a plugin
	Stage    string
}

// String renders the entry the way it is persisted
func (e Entry) String() string {
	if e.PluginID == "" {
		return fmt.Sprintf("[%s]: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s]: [%s] %s", e.Kind, e.PluginID, e.Message)
}

// Sink is an append-only, concurrency-safe event log
type Sink struct {
	mu      sync.Mutex
	entries []Entry
	errors  int
	out     io.Writer
	log     *logrus.Logger
}

// NewSink creates a sink persisting to out (may be nil) and mirroring to log
func NewSink(out io.Writer, log *logrus.Logger) *Sink {
	if log == nil {
		log = logrus.New()
	}
	return &Sink{
		out: out,
		log: log,
	}
}

// NewFileSink creates a sink persisting to a size-rotated file at path
func NewFileSink(path string, log *logrus.Logger) *Sink {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil && log != nil {
			log.Warnf("Failed to create log directory %s: %v", dir, err)
		}
	}

	return NewSink(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}, log)
}

// Append records an event not tied to a specific plugin
func (s *Sink) Append(kind Kind, message string) {
	s.AppendEntry(Entry{Kind: kind, Message: message})
}

// Appendf records a formatted event
func (s *Sink) Appendf(kind Kind, format string, args ...interface{}) {
	s.Append(kind, fmt.Sprintf(format, args...))
}

// AppendEntry records an event
func (s *Sink) AppendEntry(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	if e.Kind == Error {
		s.errors++
	}
	if s.out != nil {
		if _, err := fmt.Fprintln(s.out, e.String()); err != nil {
			s.log.Debugf("Failed to persist log entry: %v", err)
		}
	}
	s.mu.Unlock()

	s.mirror(e)
}

// Snapshot returns a copy of all events in append order
func (s *Sink) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded events
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HasErrors reports whether any Error event was recorded
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors > 0
}

// Close closes the persisted writer if it is closable
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Sink) mirror(e Entry) {
	fields := logrus.Fields{"kind": e.Kind.String()}
	if e.PluginID != "" {
		fields["plugin"] = e.PluginID
	}
	if e.Stage != "" {
		fields["stage"] = e.Stage
	}
	entry := s.log.WithFields(fields)

	switch e.Kind {
	case Error:
		entry.Error(e.Message)
	case Warn:
		entry.Warn(e.Message)
	case Debug:
		entry.Debug(e.Message)
	default:
		entry.Info(e.Message)
	}
}
